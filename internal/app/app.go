// Package app wires all stockvox subsystems into a running assistant.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the command loop, and Shutdown tears everything
// down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithMetrics) and scripted speech engines. When an option is
// not provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/stockvox/stockvox/internal/command"
	"github.com/stockvox/stockvox/internal/config"
	"github.com/stockvox/stockvox/internal/health"
	"github.com/stockvox/stockvox/internal/inventory"
	"github.com/stockvox/stockvox/internal/invstore"
	"github.com/stockvox/stockvox/internal/observe"
	"github.com/stockvox/stockvox/internal/respond"
	"github.com/stockvox/stockvox/internal/router"
	"github.com/stockvox/stockvox/pkg/speech"
)

// goodbyeText is spoken when the user requests shutdown with an exit word.
const goodbyeText = "Goodbye! Shutting down."

// adminShutdownTimeout bounds the admin server drain when the command loop ends.
const adminShutdownTimeout = 5 * time.Second

// exitWords end the session when one is spoken on its own.
var exitWords = map[string]struct{}{
	"exit":    {},
	"quit":    {},
	"stop":    {},
	"goodbye": {},
	"bye":     {},
}

// Engines holds the speech engines selected via config. Populated by
// main.go via the config registry. Both slots are required.
type Engines struct {
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
}

// App owns all subsystem lifetimes and runs the listen, parse, execute,
// respond loop.
type App struct {
	cfg     *config.Config
	engines *Engines

	// Subsystems; initialised in New, torn down in Shutdown.
	store    invstore.Store
	engine   *inventory.Engine
	parser   *command.Parser
	renderer *respond.Renderer
	router   *router.Router
	admin    *http.Server

	metrics   *observe.Metrics
	sessionID string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a record store instead of opening one from config.
func WithStore(s invstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The engines struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles.
//
// New performs all initialisation synchronously: store open + migration,
// inventory engine, command parser, renderer + router, and the admin HTTP
// server when a listen address is configured.
func New(ctx context.Context, cfg *config.Config, engines *Engines, opts ...Option) (*App, error) {
	if engines == nil || engines.Recognizer == nil || engines.Synthesizer == nil {
		return nil, errors.New("app: recognizer and synthesizer engines are required")
	}

	a := &App{
		cfg:       cfg,
		engines:   engines,
		sessionID: newSessionID(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Record store ──────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Inventory engine ──────────────────────────────────────────────
	a.engine = inventory.NewEngine(a.store,
		inventory.WithFuzzyThreshold(cfg.Inventory.FuzzyThreshold),
		inventory.WithLowStockThreshold(cfg.Inventory.LowStockThreshold),
		inventory.WithTransactionLog(cfg.Inventory.TransactionLogEnabled()),
		inventory.WithMetrics(a.metrics),
	)

	// ── 3. Command parser ────────────────────────────────────────────────
	a.parser = command.NewParser(
		command.WithConfidenceThreshold(cfg.Parser.ConfidenceThreshold),
		command.WithHistorySize(cfg.Parser.HistorySize),
	)

	// ── 4. Renderer + router ─────────────────────────────────────────────
	a.renderer = respond.NewRenderer(
		respond.WithLowStockThreshold(cfg.Inventory.LowStockThreshold),
	)
	a.router = router.NewRouter(a.parser, a.engine, a.renderer,
		router.WithMetrics(a.metrics),
	)

	// ── 5. Admin server ──────────────────────────────────────────────────
	a.initAdmin()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore opens the configured record store unless one was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil // injected
	}

	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		a.store = invstore.NewMemStore()

	case config.DriverSQLite:
		store, err := invstore.NewSQLiteStore(a.cfg.Store.Path)
		if err != nil {
			return err
		}
		a.store = store
		a.closers = append(a.closers, store.Close)

	case config.DriverPostgres:
		pool, err := invstore.OpenPostgres(ctx, a.cfg.Store.DSN)
		if err != nil {
			return err
		}
		store := invstore.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})

	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}

	slog.Info("record store ready", "driver", a.cfg.Store.Driver)
	return nil
}

// initAdmin builds the admin HTTP server when a listen address is set.
// It exposes the health probes and the Prometheus scrape endpoint.
func (a *App) initAdmin() {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	health.New(health.StoreCheck(a.store)).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.admin = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run executes the command loop and blocks until the loop ends or ctx is
// cancelled. A spoken exit word and recognizer end-of-input both end the
// loop cleanly, in which case Run returns nil. The admin server, when
// configured, serves for exactly as long as the loop runs.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.reportLowStock(ctx)

	g, ctx := errgroup.WithContext(ctx)

	if a.admin != nil {
		g.Go(func() error {
			slog.Info("admin server listening", "addr", a.admin.Addr)
			if err := a.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			drainCtx, drainCancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
			defer drainCancel()
			return a.admin.Shutdown(drainCtx)
		})
	}

	g.Go(func() error {
		// A clean loop exit must also stop the admin server.
		defer cancel()
		return a.commandLoop(ctx)
	})

	slog.Info("assistant running", "session", a.sessionID)
	return g.Wait()
}

// reportLowStock logs every item at or below the low-stock threshold. Runs
// once at startup so operators see what needs restocking before the first
// command.
func (a *App) reportLowStock(ctx context.Context) {
	items, err := a.engine.LowStock(ctx)
	if err != nil {
		slog.Warn("low stock sweep failed", "err", err)
		return
	}
	for _, it := range items {
		slog.Warn("low stock",
			"item", it.Name,
			"quantity", it.Quantity,
			"threshold", a.engine.LowStockThreshold())
	}
}

// commandLoop reads utterances until an exit word, end of input, or ctx
// cancellation. Recognition blips and per-command failures never end the
// session; failures of the input channel itself do.
func (a *App) commandLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, err := a.engines.Recognizer.Listen(ctx)
		switch {
		case errors.Is(err, io.EOF):
			slog.Info("input closed, ending session")
			return nil
		case errors.Is(err, speech.ErrNoSpeech):
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			return fmt.Errorf("listen: %w", err)
		}

		if isExitWord(text) {
			a.speak(ctx, goodbyeText)
			return nil
		}

		out := a.router.Process(ctx, text)
		if out.Response != "" {
			a.speak(ctx, out.Response)
		}
	}
}

// speak sends text to the synthesizer. Synthesis failures are logged, not
// fatal; the session continues.
func (a *App) speak(ctx context.Context, text string) {
	if err := a.engines.Synthesizer.Speak(ctx, text); err != nil {
		slog.Warn("speak failed", "err", err)
	}
}

// isExitWord reports whether the utterance on its own requests shutdown.
func isExitWord(text string) bool {
	_, ok := exitWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order and logs the session
// statistics. It respects the context deadline: if ctx expires before all
// closers finish, remaining closers are skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		stats := a.router.Stats()
		slog.Info("shutting down",
			"session", a.sessionID,
			"processed", stats.Processed,
			"succeeded", stats.Succeeded,
			"failed", stats.Failed,
			"closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// Stats returns the session counters accumulated by the router.
func (a *App) Stats() router.Stats {
	return a.router.Stats()
}

// SessionID returns the identifier logged with this session's records.
func (a *App) SessionID() string {
	return a.sessionID
}

// newSessionID returns a timestamp-based identifier for log correlation.
func newSessionID() string {
	return "session-" + time.Now().UTC().Format("20060102T150405Z")
}
