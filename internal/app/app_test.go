package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stockvox/stockvox/internal/app"
	"github.com/stockvox/stockvox/internal/command"
	"github.com/stockvox/stockvox/internal/config"
	"github.com/stockvox/stockvox/internal/fuzzy"
	"github.com/stockvox/stockvox/internal/inventory"
	"github.com/stockvox/stockvox/internal/invstore"
	"github.com/stockvox/stockvox/internal/router"
	"github.com/stockvox/stockvox/pkg/speech"
	"github.com/stockvox/stockvox/pkg/speech/mock"
)

// testConfig returns a minimal config backed by the in-memory store. No
// admin server; tests drive the command loop directly.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Store:  config.StoreConfig{Driver: config.DriverMemory},
		Parser: config.ParserConfig{
			ConfidenceThreshold: command.DefaultConfidenceThreshold,
			HistorySize:         command.DefaultHistorySize,
		},
		Inventory: config.InventoryConfig{
			FuzzyThreshold:    fuzzy.DefaultThreshold,
			LowStockThreshold: inventory.DefaultLowStockThreshold,
		},
	}
}

// testEngines returns scripted speech engines: the recognizer replays the
// utterances and the synthesizer records every reply.
func testEngines(utterances ...string) (*app.Engines, *mock.Synthesizer) {
	syn := &mock.Synthesizer{}
	return &app.Engines{
		Recognizer:  &mock.Recognizer{Utterances: utterances},
		Synthesizer: syn,
	}, syn
}

// newTestApp builds an App over a fresh MemStore with a scripted session.
func newTestApp(t *testing.T, utterances ...string) (*app.App, *mock.Synthesizer, *invstore.MemStore) {
	t.Helper()

	engines, syn := testEngines(utterances...)
	store := invstore.NewMemStore()

	application, err := app.New(context.Background(), testConfig(), engines, app.WithStore(store))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return application, syn, store
}

// runApp runs the application to completion, failing the test if the
// scripted session does not end within 5 seconds.
func runApp(t *testing.T, application *app.App) error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(context.Background())
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s")
		return nil
	}
}

func TestNew_RequiresBothEngines(t *testing.T) {
	t.Parallel()

	if _, err := app.New(context.Background(), testConfig(), nil); err == nil {
		t.Error("New() accepted nil engines")
	}

	engines := &app.Engines{Recognizer: &mock.Recognizer{}}
	if _, err := app.New(context.Background(), testConfig(), engines); err == nil {
		t.Error("New() accepted a missing synthesizer")
	}
}

func TestNew_UnknownStoreDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Store.Driver = config.StoreDriver("bananas")

	engines, _ := testEngines()
	if _, err := app.New(context.Background(), cfg, engines); err == nil {
		t.Error("New() accepted an unknown store driver")
	}
}

func TestRun_ScriptedSession(t *testing.T) {
	t.Parallel()

	application, syn, store := newTestApp(t,
		"add five apples",
		"how many apples left",
		"exit",
	)

	if err := runApp(t, application); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{
		"Added 5 apples to inventory.",
		"apples: 5 units. Stock is running low.",
		"Goodbye! Shutting down.",
	}
	spoken := syn.Spoken()
	if len(spoken) != len(want) {
		t.Fatalf("spoken %d replies, want %d: %q", len(spoken), len(want), spoken)
	}
	for i := range want {
		if spoken[i] != want[i] {
			t.Errorf("reply %d = %q, want %q", i, spoken[i], want[i])
		}
	}

	// The session must have touched the real store.
	item, err := store.ItemByName(context.Background(), "apples")
	if err != nil {
		t.Fatalf("ItemByName: %v", err)
	}
	if item == nil || item.Quantity != 5 {
		t.Errorf("stored item = %+v, want quantity 5", item)
	}

	if !strings.HasPrefix(application.SessionID(), "session-") {
		t.Errorf("SessionID() = %q", application.SessionID())
	}
}

func TestRun_EndsAtEndOfInput(t *testing.T) {
	t.Parallel()

	// Script exhausted without an exit word: the recognizer reports EOF and
	// the session ends cleanly, without a goodbye.
	application, syn, _ := newTestApp(t, "add five apples")

	if err := runApp(t, application); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	spoken := syn.Spoken()
	if len(spoken) != 1 || spoken[0] != "Added 5 apples to inventory." {
		t.Errorf("spoken = %q", spoken)
	}
}

func TestRun_ExitWords(t *testing.T) {
	t.Parallel()

	// Case and surrounding whitespace never matter.
	words := []string{"exit", "quit", "stop", "goodbye", "bye", "QUIT", "  stop  "}
	for _, word := range words {
		application, syn, _ := newTestApp(t, word)

		if err := runApp(t, application); err != nil {
			t.Fatalf("Run(%q) error: %v", word, err)
		}
		spoken := syn.Spoken()
		if len(spoken) != 1 || spoken[0] != "Goodbye! Shutting down." {
			t.Errorf("spoken after %q = %q", word, spoken)
		}
	}
}

func TestRun_FailuresKeepSessionAlive(t *testing.T) {
	t.Parallel()

	application, syn, _ := newTestApp(t,
		"remove 99 apples", // nothing stocked yet
		"xyz abc def",      // no recognizable intent
		"add five apples",
		"exit",
	)

	if err := runApp(t, application); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	spoken := syn.Spoken()
	if len(spoken) != 4 {
		t.Fatalf("spoken %d replies, want 4: %q", len(spoken), spoken)
	}
	if !strings.Contains(spoken[0], "couldn't find") {
		t.Errorf("reply 0 = %q, want a not-found apology", spoken[0])
	}
	if want := "I didn't understand that command. Please try again with a clearer instruction."; spoken[1] != want {
		t.Errorf("reply 1 = %q, want %q", spoken[1], want)
	}
	if want := "Added 5 apples to inventory."; spoken[2] != want {
		t.Errorf("reply 2 = %q, want %q", spoken[2], want)
	}
	if want := "Goodbye! Shutting down."; spoken[3] != want {
		t.Errorf("reply 3 = %q, want %q", spoken[3], want)
	}
}

// noSpeechOnce reports ErrNoSpeech on the first call, then replays the
// inner script. Models a recognizer that caught a breath before a command.
type noSpeechOnce struct {
	inner *mock.Recognizer
	fired bool
}

func (r *noSpeechOnce) Listen(ctx context.Context) (string, error) {
	if !r.fired {
		r.fired = true
		return "", speech.ErrNoSpeech
	}
	return r.inner.Listen(ctx)
}

func TestRun_NoSpeechIsSkipped(t *testing.T) {
	t.Parallel()

	syn := &mock.Synthesizer{}
	engines := &app.Engines{
		Recognizer: &noSpeechOnce{
			inner: &mock.Recognizer{Utterances: []string{"add five apples", "exit"}},
		},
		Synthesizer: syn,
	}

	application, err := app.New(context.Background(), testConfig(), engines,
		app.WithStore(invstore.NewMemStore()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := runApp(t, application); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	spoken := syn.Spoken()
	if len(spoken) != 2 || spoken[0] != "Added 5 apples to inventory." {
		t.Errorf("spoken = %q", spoken)
	}
}

func TestRun_ListenErrorIsTerminal(t *testing.T) {
	t.Parallel()

	syn := &mock.Synthesizer{}
	engines := &app.Engines{
		Recognizer:  &mock.Recognizer{Err: errors.New("microphone unplugged")},
		Synthesizer: syn,
	}

	application, err := app.New(context.Background(), testConfig(), engines,
		app.WithStore(invstore.NewMemStore()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	err = runApp(t, application)
	if err == nil || !strings.Contains(err.Error(), "microphone unplugged") {
		t.Fatalf("Run() error = %v, want the listen failure", err)
	}
}

// blockingRecognizer waits for ctx cancellation, like a microphone that
// never hears anything.
type blockingRecognizer struct{}

func (blockingRecognizer) Listen(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRun_ContextCancel(t *testing.T) {
	t.Parallel()

	syn := &mock.Synthesizer{}
	engines := &app.Engines{Recognizer: blockingRecognizer{}, Synthesizer: syn}

	application, err := app.New(context.Background(), testConfig(), engines,
		app.WithStore(invstore.NewMemStore()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	// Give Run a moment to set up goroutines.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}
}

func TestStats_CountsSession(t *testing.T) {
	t.Parallel()

	application, _, _ := newTestApp(t,
		"add five apples",
		"xyz abc def",
		"exit", // handled before the router, not counted
	)

	if err := runApp(t, application); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got := application.Stats()
	want := router.Stats{Processed: 2, Succeeded: 1, Failed: 1}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	application, _, _ := newTestApp(t, "exit")

	if err := runApp(t, application); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}
