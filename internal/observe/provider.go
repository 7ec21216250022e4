package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// ProviderConfig configures the OpenTelemetry SDK providers.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default: "scribecast".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string

	// TraceExporter is an optional span exporter. When nil, spans are
	// recorded but not exported.
	TraceExporter sdktrace.SpanExporter

	// Registry receives the Prometheus collectors. When nil a fresh registry
	// is created, so repeated initialisation in one process never collides
	// on the global default registry.
	Registry *prometheus.Registry
}

// Telemetry bundles the SDK state created by [InitProvider].
type Telemetry struct {
	// Registry is the Prometheus registry the exporter feeds. Serve it with
	// [NewAdminServer].
	Registry *prometheus.Registry

	// Metrics holds the scribecast instruments bound to the SDK meter
	// provider.
	Metrics *Metrics

	shutdownFuncs []func(context.Context) error
}

// InitProvider initialises the OTel SDK with the given config. It sets up:
//
//   - A [sdkmetric.MeterProvider] with a Prometheus exporter writing into
//     cfg.Registry so metrics can be scraped via /metrics.
//   - A [sdktrace.TracerProvider] with the configured exporter (or none).
//   - The W3C trace-context propagator.
//
// The providers are registered as the global OTel providers. Call
// [Telemetry.Shutdown] in a defer from main().
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "scribecast"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	tel := &Telemetry{Registry: cfg.Registry}

	// --- Metrics: Prometheus exporter bridge ---
	promExp, err := promexporter.New(promexporter.WithRegisterer(cfg.Registry))
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)
	tel.shutdownFuncs = append(tel.shutdownFuncs, mp.Shutdown)

	tel.Metrics, err = NewMetrics(mp)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("observe: %w", err)
	}

	// --- Traces ---
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tel.shutdownFuncs = append(tel.shutdownFuncs, tp.Shutdown)

	return tel, nil
}

// Shutdown flushes and closes the providers in reverse creation order.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdownFuncs) - 1; i >= 0; i-- {
		if err := t.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
