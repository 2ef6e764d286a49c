package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/stockvox/stockvox/internal/command"
	"github.com/stockvox/stockvox/internal/fuzzy"
	"github.com/stockvox/stockvox/internal/inventory"
)

// DefaultSQLitePath is the record store location used when store.path
// is unset.
const DefaultSQLitePath = "stockvox.db"

// DefaultSpeechEngine is the speech engine selected for a direction that
// has no name configured.
const DefaultSpeechEngine = "console"

// ValidSpeechEngines lists the engine names bundled with stockvox.
// Used by [Validate] to warn about unrecognised engine names.
var ValidSpeechEngines = []string{"console", "mock"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults, and
// validates the result. An empty document yields the default
// configuration. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills the zero values of cfg that have a documented
// default. Tuning defaults come from the packages they tune so the
// numbers cannot drift apart.
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverSQLite
	}
	if cfg.Store.Driver == DriverSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = DefaultSQLitePath
	}
	if cfg.Speech.Input.Name == "" {
		cfg.Speech.Input.Name = DefaultSpeechEngine
	}
	if cfg.Speech.Output.Name == "" {
		cfg.Speech.Output.Name = DefaultSpeechEngine
	}
	if cfg.Parser.ConfidenceThreshold == 0 {
		cfg.Parser.ConfidenceThreshold = command.DefaultConfidenceThreshold
	}
	if cfg.Parser.HistorySize == 0 {
		cfg.Parser.HistorySize = command.DefaultHistorySize
	}
	if cfg.Inventory.FuzzyThreshold == 0 {
		cfg.Inventory.FuzzyThreshold = fuzzy.DefaultThreshold
	}
	if cfg.Inventory.LowStockThreshold == 0 {
		cfg.Inventory.LowStockThreshold = inventory.DefaultLowStockThreshold
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Store
	if !cfg.Store.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("store.driver %q is invalid; valid values: memory, sqlite, postgres", cfg.Store.Driver))
	}
	if cfg.Store.Driver == DriverPostgres && cfg.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required when store.driver is postgres"))
	}
	if cfg.Store.Driver == DriverSQLite && cfg.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required when store.driver is sqlite"))
	}

	// Speech engine validation warns but never fails the load.
	validateSpeechEngine("input", cfg.Speech.Input.Name)
	validateSpeechEngine("output", cfg.Speech.Output.Name)

	// Parser
	if cfg.Parser.ConfidenceThreshold <= 0 || cfg.Parser.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("parser.confidence_threshold %.2f is out of range (0, 1]", cfg.Parser.ConfidenceThreshold))
	}
	if cfg.Parser.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("parser.history_size %d is negative", cfg.Parser.HistorySize))
	}

	// Inventory
	if cfg.Inventory.FuzzyThreshold < 1 || cfg.Inventory.FuzzyThreshold > 100 {
		errs = append(errs, fmt.Errorf("inventory.fuzzy_threshold %d is out of range [1, 100]", cfg.Inventory.FuzzyThreshold))
	}
	if cfg.Inventory.LowStockThreshold < 0 {
		errs = append(errs, fmt.Errorf("inventory.low_stock_threshold %d is negative", cfg.Inventory.LowStockThreshold))
	}

	return errors.Join(errs...)
}

// validateSpeechEngine logs a warning if name is non-empty and not found
// in [ValidSpeechEngines].
func validateSpeechEngine(direction, name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidSpeechEngines, name) {
		return
	}
	slog.Warn("unknown speech engine; may be a typo or an external registration",
		"direction", direction,
		"name", name,
		"known", ValidSpeechEngines,
	)
}
