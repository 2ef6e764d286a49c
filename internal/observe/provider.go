package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// defaultServiceName identifies this service in telemetry when the caller
// does not override it.
const defaultServiceName = "stockvox"

// ProviderConfig configures the OpenTelemetry SDK providers.
type ProviderConfig struct {
	// ServiceName overrides the service.name resource attribute.
	// Empty means "stockvox".
	ServiceName string

	// ServiceVersion is reported as service.version. Usually the value
	// injected into main via -ldflags.
	ServiceVersion string

	// TraceExporter receives finished spans. Nil keeps span recording on
	// without export; tests and metrics-only deployments leave it unset.
	TraceExporter sdktrace.SpanExporter
}

// InitProvider wires the global OTel meter and tracer providers: metrics go
// through a Prometheus reader (scraped from the admin /metrics endpoint) and
// spans through the configured exporter, when one is set.
//
// The returned function shuts both providers down and belongs in a defer in
// main.
func InitProvider(ctx context.Context, cfg ProviderConfig) (func(context.Context) error, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	mp, err := newMeterProvider(res)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp)

	tp := newTracerProvider(cfg, res)
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		// Traces flush before the meter provider closes.
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	return shutdown, nil
}

// newResource describes this process for every exported signal.
func newResource(cfg ProviderConfig) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
}

// newMeterProvider builds the meter provider on the Prometheus bridge, so
// instruments registered through otel surface on the default Prometheus
// registry.
func newMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	bridge, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(bridge),
	), nil
}

func newTracerProvider(cfg ProviderConfig, res *resource.Resource) *sdktrace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		opts = append(opts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	return sdktrace.NewTracerProvider(opts...)
}
