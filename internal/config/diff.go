package config

import "reflect"

// ConfigDiff describes what changed between two configs. The flags let
// the application decide which changes to apply live and which to only
// report as needing a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ServerAddrChanged bool
	StoreChanged      bool
	SpeechChanged     bool
	ParserChanged     bool
	InventoryChanged  bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ServerAddrChanged || d.StoreChanged ||
		d.SpeechChanged || d.ParserChanged || d.InventoryChanged
}

// RestartRequired reports whether the diff contains changes that cannot
// be applied to a running assistant. The store backend, speech engines,
// admin listener, and the parser and inventory tuning are all wired at
// startup; only the log level is hot-reloadable.
func (d ConfigDiff) RestartRequired() bool {
	return d.ServerAddrChanged || d.StoreChanged || d.SpeechChanged ||
		d.ParserChanged || d.InventoryChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.ServerAddrChanged = true
	}
	if old.Store != new.Store {
		d.StoreChanged = true
	}
	if speechEntryChanged(old.Speech.Input, new.Speech.Input) ||
		speechEntryChanged(old.Speech.Output, new.Speech.Output) ||
		old.Speech.ConsoleFallback != new.Speech.ConsoleFallback {
		d.SpeechChanged = true
	}
	if old.Parser != new.Parser {
		d.ParserChanged = true
	}
	if inventoryChanged(old.Inventory, new.Inventory) {
		d.InventoryChanged = true
	}

	return d
}

// speechEntryChanged compares two speech entries. Options maps need a
// deep comparison.
func speechEntryChanged(old, new SpeechEntry) bool {
	if old.Name != new.Name {
		return true
	}
	return !reflect.DeepEqual(old.Options, new.Options)
}

// inventoryChanged compares two inventory configs, treating an unset
// transaction_log the same as an explicit true.
func inventoryChanged(old, new InventoryConfig) bool {
	if old.FuzzyThreshold != new.FuzzyThreshold {
		return true
	}
	if old.LowStockThreshold != new.LowStockThreshold {
		return true
	}
	return old.TransactionLogEnabled() != new.TransactionLogEnabled()
}
