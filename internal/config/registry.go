package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stockvox/stockvox/pkg/speech"
)

// ErrEngineNotRegistered is returned by Create calls when no factory is
// registered under the requested engine name.
var ErrEngineNotRegistered = errors.New("config: speech engine not registered")

// factories holds the named constructors for one speech direction.
type factories[T any] struct {
	mu     sync.RWMutex
	byName map[string]func(SpeechEntry) (T, error)
}

func (f *factories[T]) register(name string, fn func(SpeechEntry) (T, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byName == nil {
		f.byName = make(map[string]func(SpeechEntry) (T, error))
	}
	f.byName[name] = fn
}

func (f *factories[T]) create(direction string, entry SpeechEntry) (T, error) {
	f.mu.RLock()
	fn, ok := f.byName[entry.Name]
	f.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrEngineNotRegistered, direction, entry.Name)
	}
	return fn(entry)
}

// Registry maps speech engine names to their constructors, one namespace
// per direction. It is safe for concurrent use.
type Registry struct {
	in  factories[speech.Recognizer]
	out factories[speech.Synthesizer]
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterRecognizer registers a recognizer factory under name. A second
// registration with the same name replaces the first.
func (r *Registry) RegisterRecognizer(name string, factory func(SpeechEntry) (speech.Recognizer, error)) {
	r.in.register(name, factory)
}

// RegisterSynthesizer registers a synthesizer factory under name.
func (r *Registry) RegisterSynthesizer(name string, factory func(SpeechEntry) (speech.Synthesizer, error)) {
	r.out.register(name, factory)
}

// CreateRecognizer builds a recognizer from the factory registered under
// entry.Name. The error wraps [ErrEngineNotRegistered] for unknown names.
func (r *Registry) CreateRecognizer(entry SpeechEntry) (speech.Recognizer, error) {
	return r.in.create("input", entry)
}

// CreateSynthesizer builds a synthesizer from the factory registered under
// entry.Name.
func (r *Registry) CreateSynthesizer(entry SpeechEntry) (speech.Synthesizer, error) {
	return r.out.create("output", entry)
}
