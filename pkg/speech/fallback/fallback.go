// Package fallback layers automatic failover over the speech interfaces.
//
// The front end degrades rather than dies: each direction wraps a primary
// engine and an ordered list of backups, with a per-engine breaker that
// benches an engine after repeated failures and probes it again after a
// rest. Wiring the console as the last backup reproduces the assistant's
// drop-to-text behavior when an audio engine stops working.
//
// Register backups before the first call; the entry list itself is not
// guarded, only the per-engine breakers are.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/stockvox/stockvox/pkg/speech"
)

// ErrNoEngines is returned when every engine is benched and none can be
// tried.
var ErrNoEngines = errors.New("fallback: no speech engine available")

// entry pairs an engine with its breaker. retired marks an engine whose
// input ended for good; it is never tried again.
type entry[T any] struct {
	name    string
	engine  T
	gate    *breaker
	retired bool
}

// Recognizer is a [speech.Recognizer] that tries each engine in order
// until one delivers an utterance.
type Recognizer struct {
	cfg     BreakerConfig
	entries []*entry[speech.Recognizer]
}

// Compile-time interface checks.
var (
	_ speech.Recognizer  = (*Recognizer)(nil)
	_ speech.Synthesizer = (*Synthesizer)(nil)
)

// NewRecognizer wraps primary with failover. cfg applies to every
// engine's breaker.
func NewRecognizer(primary speech.Recognizer, name string, cfg BreakerConfig) *Recognizer {
	return &Recognizer{
		cfg: cfg,
		entries: []*entry[speech.Recognizer]{
			{name: name, engine: primary, gate: newBreaker(name, cfg)},
		},
	}
}

// AddBackup appends a backup engine, tried after the primary in the order
// added.
func (r *Recognizer) AddBackup(name string, engine speech.Recognizer) {
	r.entries = append(r.entries, &entry[speech.Recognizer]{
		name: name, engine: engine, gate: newBreaker(name, r.cfg),
	})
}

// Listen asks each available engine for the next utterance.
//
//   - [speech.ErrNoSpeech] passes through; a silent user is not a broken
//     engine.
//   - Context errors pass through immediately.
//   - io.EOF retires the engine permanently; once every engine is retired
//     Listen reports io.EOF so the session can end cleanly.
//   - Anything else counts against the engine's breaker and the next
//     backup is tried.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	var lastErr error
	retired := 0

	for _, e := range r.entries {
		if e.retired {
			retired++
			continue
		}
		if !e.gate.allow() {
			continue
		}

		text, err := e.engine.Listen(ctx)
		switch {
		case err == nil:
			e.gate.record(nil)
			return text, nil
		case errors.Is(err, speech.ErrNoSpeech):
			e.gate.record(nil)
			return "", err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		case errors.Is(err, io.EOF):
			e.retired = true
			retired++
			lastErr = err
			slog.Info("speech engine input ended", "engine", e.name)
		default:
			e.gate.record(err)
			lastErr = err
			slog.Warn("speech engine failed, trying backup", "engine", e.name, "err", err)
		}
	}

	if retired == len(r.entries) {
		return "", io.EOF
	}
	if lastErr != nil {
		return "", fmt.Errorf("fallback: all engines failed: %w", lastErr)
	}
	return "", ErrNoEngines
}

// Synthesizer is a [speech.Synthesizer] with the same failover policy for
// the output direction.
type Synthesizer struct {
	cfg     BreakerConfig
	entries []*entry[speech.Synthesizer]
}

// NewSynthesizer wraps primary with failover. cfg applies to every
// engine's breaker.
func NewSynthesizer(primary speech.Synthesizer, name string, cfg BreakerConfig) *Synthesizer {
	return &Synthesizer{
		cfg: cfg,
		entries: []*entry[speech.Synthesizer]{
			{name: name, engine: primary, gate: newBreaker(name, cfg)},
		},
	}
}

// AddBackup appends a backup engine, tried after the primary in the order
// added.
func (s *Synthesizer) AddBackup(name string, engine speech.Synthesizer) {
	s.entries = append(s.entries, &entry[speech.Synthesizer]{
		name: name, engine: engine, gate: newBreaker(name, s.cfg),
	})
}

// Speak delivers text through the first engine that accepts it. Context
// errors pass through; engine failures count against the breaker and the
// next backup is tried.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	var lastErr error

	for _, e := range s.entries {
		if !e.gate.allow() {
			continue
		}

		err := e.engine.Speak(ctx, text)
		if err == nil {
			e.gate.record(nil)
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		e.gate.record(err)
		lastErr = err
		slog.Warn("speech engine failed, trying backup", "engine", e.name, "err", err)
	}

	if lastErr != nil {
		return fmt.Errorf("fallback: all engines failed: %w", lastErr)
	}
	return ErrNoEngines
}
