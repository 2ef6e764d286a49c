// Command stockvox is the main entry point for the stockvox voice-driven
// inventory assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/stockvox/stockvox/internal/app"
	"github.com/stockvox/stockvox/internal/config"
	"github.com/stockvox/stockvox/internal/observe"
	"github.com/stockvox/stockvox/pkg/speech"
	"github.com/stockvox/stockvox/pkg/speech/console"
	"github.com/stockvox/stockvox/pkg/speech/fallback"
	"github.com/stockvox/stockvox/pkg/speech/mock"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "stockvox: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "stockvox: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so a config reload can adjust it live.
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("stockvox starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "stockvox",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Speech engine registry ────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinEngines(reg)

	engines, err := buildEngines(cfg, reg)
	if err != nil {
		slog.Error("failed to build speech engines", "err", err)
		return 1
	}
	if cfg.Speech.ConsoleFallback {
		applyConsoleFallback(cfg, engines)
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	// Only the log level is applied live; everything else is wired at startup
	// and needs a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			level.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level updated", "level", diff.NewLogLevel)
		}
		if diff.RestartRequired() {
			slog.Warn("configuration changes require a restart to take effect")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, engines)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info(`assistant ready; press Ctrl+C or say "exit" to finish`)

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Speech engine wiring ──────────────────────────────────────────────────────

// registerBuiltinEngines wires the speech engines that ship with stockvox
// into reg. The console engine reads utterances from stdin and prints
// replies to stdout; the mock engine replays an empty script and exists for
// wiring smoke tests.
func registerBuiltinEngines(reg *config.Registry) {
	reg.RegisterRecognizer("console", func(entry config.SpeechEntry) (speech.Recognizer, error) {
		return console.New(os.Stdin, os.Stdout, consoleOptions(entry)...), nil
	})
	reg.RegisterSynthesizer("console", func(entry config.SpeechEntry) (speech.Synthesizer, error) {
		return console.New(os.Stdin, os.Stdout, consoleOptions(entry)...), nil
	})

	reg.RegisterRecognizer("mock", func(config.SpeechEntry) (speech.Recognizer, error) {
		return &mock.Recognizer{}, nil
	})
	reg.RegisterSynthesizer("mock", func(config.SpeechEntry) (speech.Synthesizer, error) {
		return &mock.Synthesizer{}, nil
	})

	for _, name := range config.ValidSpeechEngines {
		slog.Debug("registered speech engine", "name", name)
	}
}

// consoleOptions maps a speech entry's options onto console options. An
// explicitly empty prompt disables the input marker.
func consoleOptions(entry config.SpeechEntry) []console.Option {
	var opts []console.Option
	if v, ok := entry.Options["prompt"]; ok {
		if prompt, ok := v.(string); ok {
			opts = append(opts, console.WithPrompt(prompt))
		}
	}
	return opts
}

// buildEngines instantiates the configured speech engines via the registry
// and returns them in an [app.Engines] struct. Unlike optional integrations,
// both directions are required: a session cannot run without them.
func buildEngines(cfg *config.Config, reg *config.Registry) (*app.Engines, error) {
	rec, err := reg.CreateRecognizer(cfg.Speech.Input)
	if err != nil {
		return nil, fmt.Errorf("create input engine %q: %w", cfg.Speech.Input.Name, err)
	}
	slog.Info("speech engine created", "direction", "input", "name", cfg.Speech.Input.Name)

	syn, err := reg.CreateSynthesizer(cfg.Speech.Output)
	if err != nil {
		return nil, fmt.Errorf("create output engine %q: %w", cfg.Speech.Output.Name, err)
	}
	slog.Info("speech engine created", "direction", "output", "name", cfg.Speech.Output.Name)

	return &app.Engines{Recognizer: rec, Synthesizer: syn}, nil
}

// applyConsoleFallback arms failover to the console for both directions,
// so a failing engine degrades the session to text instead of ending it.
// Directions already on the console are left alone.
func applyConsoleFallback(cfg *config.Config, engines *app.Engines) {
	var breaker fallback.BreakerConfig

	if cfg.Speech.Input.Name != "console" {
		rec := fallback.NewRecognizer(engines.Recognizer, cfg.Speech.Input.Name, breaker)
		rec.AddBackup("console", console.New(os.Stdin, os.Stdout))
		engines.Recognizer = rec
		slog.Info("console fallback armed", "direction", "input")
	}
	if cfg.Speech.Output.Name != "console" {
		syn := fallback.NewSynthesizer(engines.Synthesizer, cfg.Speech.Output.Name, breaker)
		syn.AddBackup("console", console.New(os.Stdin, os.Stdout))
		engines.Synthesizer = syn
		slog.Info("console fallback armed", "direction", "output")
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        stockvox startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printSetting("Store", storeSummary(cfg.Store))
	printSetting("Input", cfg.Speech.Input.Name)
	printSetting("Output", cfg.Speech.Output.Name)
	printSetting("Fuzzy threshold", strconv.Itoa(cfg.Inventory.FuzzyThreshold))
	printSetting("Low stock at", strconv.Itoa(cfg.Inventory.LowStockThreshold))
	if cfg.Server.ListenAddr != "" {
		printSetting("Admin addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printSetting(name, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 18 {
		value = value[:15] + "…"
	}
	fmt.Printf("║  %-15s : %-18s ║\n", name, value)
}

// storeSummary describes the store target without leaking credentials.
func storeSummary(sc config.StoreConfig) string {
	switch sc.Driver {
	case config.DriverSQLite:
		return "sqlite " + sc.Path
	case config.DriverPostgres:
		return "postgres"
	default:
		return string(sc.Driver)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// slogLevel translates the config level to its slog value.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
