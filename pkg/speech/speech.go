// Package speech defines the interfaces between the stockvox core and the
// audio front end.
//
// The core never touches microphones, audio buffers, or synthesis engines.
// It consumes one plain utterance string per command from a [Recognizer] and
// hands one rendered reply string to a [Synthesizer]. How those strings are
// captured or vocalized (speech-to-text service, text-to-speech engine, a
// plain terminal) is entirely the implementation's concern.
//
// Implementations must be safe for concurrent use.
package speech

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by Recognizer implementations that can distinguish
// "nothing was said before the listen window closed" from a capture failure.
// Callers treat it like an empty utterance: skip the command, keep listening.
var ErrNoSpeech = errors.New("speech: no speech detected")

// Recognizer captures a single utterance and returns it as plain text.
type Recognizer interface {
	// Listen blocks until one utterance is available and returns its text.
	// An empty string with a nil error means the input source produced
	// nothing usable; the caller should skip the turn rather than fail.
	// Listen returns io.EOF when the input source is exhausted and no
	// further utterances will ever arrive.
	Listen(ctx context.Context) (string, error)
}

// Synthesizer delivers a rendered reply to the user. Whether the text is
// spoken aloud, printed, or both is up to the implementation; the core does
// not depend on the outcome.
type Synthesizer interface {
	// Speak delivers text to the user. Errors indicate delivery problems
	// (audio device gone, pipe closed); the command that produced the text
	// has already completed and is not rolled back.
	Speak(ctx context.Context, text string) error
}
