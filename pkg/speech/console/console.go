// Package console implements the speech interfaces on top of a plain
// terminal: the Recognizer reads one line per utterance and the Synthesizer
// prints replies. This is both the text-mode front end and the fallback used
// when no audio pipeline is configured.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/stockvox/stockvox/pkg/speech"
)

// defaultPrompt is printed before each read when none is configured.
const defaultPrompt = "> "

// Option is a functional option for [New].
type Option func(*Console)

// WithPrompt sets the string printed before each input line. An empty prompt
// disables the marker entirely.
func WithPrompt(prompt string) Option {
	return func(c *Console) {
		c.prompt = prompt
		c.promptSet = true
	}
}

// Console is a line-oriented [speech.Recognizer] and [speech.Synthesizer]
// over an io.Reader/io.Writer pair, normally os.Stdin and os.Stdout.
type Console struct {
	mu        sync.Mutex
	scanner   *bufio.Scanner
	out       io.Writer
	prompt    string
	promptSet bool
}

// Compile-time interface checks.
var (
	_ speech.Recognizer  = (*Console)(nil)
	_ speech.Synthesizer = (*Console)(nil)
)

// New creates a Console reading utterances from in and writing replies to
// out.
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
	for _, o := range opts {
		o(c)
	}
	if !c.promptSet {
		c.prompt = defaultPrompt
	}
	return c
}

// Listen prints the prompt and blocks on the next input line. Leading and
// trailing whitespace is trimmed; the line may be empty. Returns io.EOF once
// the input source is exhausted.
func (c *Console) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prompt != "" {
		fmt.Fprint(c.out, c.prompt)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", fmt.Errorf("console: read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.scanner.Text()), nil
}

// Speak writes text followed by a newline to the output writer.
func (c *Console) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return fmt.Errorf("console: write reply: %w", err)
	}
	return nil
}
