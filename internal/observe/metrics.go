// Package observe carries the observability stack for stockvox: OTel
// metric instruments, the provider bootstrap, tracing helpers, and the
// admin HTTP middleware.
//
// Instruments are created through [NewMetrics] against any
// [metric.MeterProvider]. [DefaultMetrics] lazily builds one package-wide
// instance on the global provider, which [InitProvider] bridges into the
// Prometheus registry behind the admin /metrics endpoint. Tests build
// their own instance so nothing leaks between them.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all stockvox instruments.
const meterName = "github.com/stockvox/stockvox"

// commandBuckets spread the latency histograms for the command pipeline:
// parsing finishes well under a millisecond, store round trips own the
// tail.
var commandBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// Metrics bundles every instrument the assistant records. The OTel types
// synchronise internally, so one instance serves all goroutines.
type Metrics struct {
	// ParseDuration measures command parsing: normalisation, intent
	// scoring, entity extraction.
	ParseDuration metric.Float64Histogram

	// ExecuteDuration measures inventory engine execution.
	ExecuteDuration metric.Float64Histogram

	// CommandDuration measures a command end to end: parse, execute,
	// render.
	CommandDuration metric.Float64Histogram

	// HTTPRequestDuration measures admin endpoint requests, labelled by
	// method and path.
	HTTPRequestDuration metric.Float64Histogram

	// Commands counts processed commands, labelled by intent and status.
	Commands metric.Int64Counter

	// FuzzyCorrections counts item lookups that only succeeded through
	// fuzzy matching (the spoken name differed from the stored one).
	FuzzyCorrections metric.Int64Counter

	// LowStockAlerts counts low-stock conditions hit during stock
	// updates.
	LowStockAlerts metric.Int64Counter

	// StoreErrors counts record store failures, labelled by operation.
	StoreErrors metric.Int64Counter

	// CatalogSize tracks the number of distinct items in the catalog.
	CatalogSize metric.Int64UpDownCounter
}

// NewMetrics creates every instrument on mp. The first instrument whose
// creation fails aborts construction.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	b := builder{meter: mp.Meter(meterName)}

	m := &Metrics{
		ParseDuration:       b.latency("stockvox.parse.duration", "Latency of command parsing."),
		ExecuteDuration:     b.latency("stockvox.execute.duration", "Latency of inventory engine execution."),
		CommandDuration:     b.latency("stockvox.command.duration", "End-to-end command processing latency."),
		HTTPRequestDuration: b.histogram("stockvox.http.request.duration", "Admin endpoint request latency by method and path."),
		Commands:            b.counter("stockvox.commands", "Total processed commands by intent and status."),
		FuzzyCorrections:    b.counter("stockvox.fuzzy.corrections", "Total item lookups resolved through fuzzy matching."),
		LowStockAlerts:      b.counter("stockvox.low_stock.alerts", "Total low-stock conditions hit during stock updates."),
		StoreErrors:         b.counter("stockvox.store.errors", "Total record-store failures by operation."),
		CatalogSize:         b.upDown("stockvox.catalog.size", "Number of distinct items in the catalog."),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// builder creates instruments and remembers the first failure.
type builder struct {
	meter metric.Meter
	err   error
}

func (b *builder) latency(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(commandBuckets...),
	)
	b.record(err)
	return h
}

func (b *builder) histogram(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
	)
	b.record(err)
	return h
}

func (b *builder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.record(err)
	return c
}

func (b *builder) upDown(name, desc string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	b.record(err)
	return c
}

func (b *builder) record(err error) {
	if b.err == nil {
		b.err = err
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the shared [Metrics] built on the global meter
// provider, creating it on first use. It panics if instrument creation
// fails, which the global provider does not do.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCommand counts one processed command under its intent and outcome.
func (m *Metrics) RecordCommand(ctx context.Context, intent, status string) {
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("status", status),
	))
}

// RecordFuzzyCorrection counts one item lookup that needed fuzzy matching.
func (m *Metrics) RecordFuzzyCorrection(ctx context.Context) {
	m.FuzzyCorrections.Add(ctx, 1)
}

// RecordLowStockAlert counts one low-stock condition.
func (m *Metrics) RecordLowStockAlert(ctx context.Context) {
	m.LowStockAlerts.Add(ctx, 1)
}

// RecordStoreError counts one record store failure for op.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
