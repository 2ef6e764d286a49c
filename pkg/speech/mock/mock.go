// Package mock provides scripted test doubles for the speech interfaces.
//
// Use Recognizer to feed a fixed sequence of utterances to the command loop
// and Synthesizer to capture every reply the core produced:
//
//	rec := &mock.Recognizer{Utterances: []string{"add 5 apples", "exit"}}
//	syn := &mock.Synthesizer{}
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/stockvox/stockvox/pkg/speech"
)

// Recognizer is a mock implementation of speech.Recognizer that replays a
// fixed utterance script.
type Recognizer struct {
	mu sync.Mutex

	// Utterances is the sequence returned by successive Listen calls.
	Utterances []string

	// Err, if non-nil, is returned by Listen once the script is exhausted
	// instead of io.EOF.
	Err error

	// Calls counts Listen invocations, including ones after exhaustion.
	Calls int

	next int
}

// Listen returns the next scripted utterance. Once the script is exhausted
// it returns Err if set, io.EOF otherwise.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls++
	if r.next >= len(r.Utterances) {
		if r.Err != nil {
			return "", r.Err
		}
		return "", io.EOF
	}
	u := r.Utterances[r.next]
	r.next++
	return u, nil
}

// Synthesizer is a mock implementation of speech.Synthesizer that records
// every reply.
type Synthesizer struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by every Speak call. The reply is still
	// recorded.
	Err error

	spoken []string
}

// Speak records text and returns Err.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.spoken = append(s.spoken, text)
	return s.Err
}

// Spoken returns a copy of all recorded replies in order.
func (s *Synthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

// Reset clears recorded replies and rewinds the recognizer script.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = 0
	r.Calls = 0
}

// Reset clears all recorded replies.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = nil
}

// Compile-time interface checks.
var (
	_ speech.Recognizer  = (*Recognizer)(nil)
	_ speech.Synthesizer = (*Synthesizer)(nil)
)
