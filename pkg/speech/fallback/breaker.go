package fallback

import (
	"log/slog"
	"sync"
	"time"
)

// Defaults for [BreakerConfig].
const (
	DefaultMaxFailures = 3
	DefaultRetryAfter  = 30 * time.Second
)

// BreakerConfig tunes when an engine is benched after repeated failures
// and when it gets another chance.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the engine
	// is benched. Default: 3.
	MaxFailures int

	// RetryAfter is how long a benched engine rests before the next call
	// probes it again. Default: 30s.
	RetryAfter time.Duration
}

// withDefaults replaces zero fields with the package defaults.
func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.RetryAfter <= 0 {
		c.RetryAfter = DefaultRetryAfter
	}
	return c
}

// breaker gates calls to one engine. An engine is either in play or
// benched; once RetryAfter has elapsed the next allowed call is a probe,
// and a probe failure benches the engine again immediately.
type breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	failures int
	benched  bool
	since    time.Time
}

func newBreaker(name string, cfg BreakerConfig) *breaker {
	return &breaker{name: name, cfg: cfg.withDefaults()}
}

// allow reports whether the engine may be called right now.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.benched {
		return true
	}
	return time.Since(b.since) >= b.cfg.RetryAfter
}

// record updates failure accounting after a call. A success puts the
// engine back in play; a failure while benched restarts the rest period.
func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.benched {
			slog.Info("speech engine recovered", "engine", b.name)
		}
		b.failures = 0
		b.benched = false
		return
	}

	b.failures++
	if b.benched {
		slog.Debug("speech engine probe failed", "engine", b.name)
		b.since = time.Now()
		return
	}
	if b.failures >= b.cfg.MaxFailures {
		slog.Warn("speech engine benched", "engine", b.name, "failures", b.failures)
		b.benched = true
		b.since = time.Now()
	}
}
