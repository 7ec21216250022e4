// Package observe provides application-wide observability primitives for
// scribecast: OpenTelemetry metrics, distributed tracing, structured logging,
// and the admin HTTP listener that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the /metrics endpoint served by [NewAdminServer]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scribecast metrics.
const meterName = "github.com/MrWong99/scribecast"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks prerecorded transcription latency. Use with attribute:
	//   attribute.String("provider", ...)
	STTDuration metric.Float64Histogram

	// RenderDuration tracks the time to render one output format. Use with
	// attribute:
	//   attribute.String("format", ...)
	RenderDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// Utterances counts segmented utterances across all jobs.
	Utterances metric.Int64Counter

	// CaptionsWritten counts output files written. Use with attribute:
	//   attribute.String("format", ...)
	CaptionsWritten metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveJobs tracks the number of caption jobs in flight.
	ActiveJobs metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks admin HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// sttBuckets defines histogram bucket boundaries (in seconds) for batch
// transcription of whole recordings.
var sttBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// renderBuckets defines histogram bucket boundaries (in seconds) for
// in-memory rendering.
var renderBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("scribecast.stt.duration",
		metric.WithDescription("Latency of prerecorded speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sttBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RenderDuration, err = m.Float64Histogram("scribecast.render.duration",
		metric.WithDescription("Latency of rendering one output format."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(renderBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("scribecast.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("scribecast.utterances",
		metric.WithDescription("Total utterances produced by segmentation."),
	); err != nil {
		return nil, err
	}
	if met.CaptionsWritten, err = m.Int64Counter("scribecast.captions.written",
		metric.WithDescription("Total output files written by format."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("scribecast.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveJobs, err = m.Int64UpDownCounter("scribecast.active_jobs",
		metric.WithDescription("Number of caption jobs in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("scribecast.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordSTT records one transcription latency sample for provider.
func (m *Metrics) RecordSTT(ctx context.Context, provider string, d time.Duration) {
	m.STTDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordRender records one render latency sample for format.
func (m *Metrics) RecordRender(ctx context.Context, format string, d time.Duration) {
	m.RenderDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("format", format)),
	)
}

// RecordCaptionWritten is a convenience method that records an output file
// counter increment.
func (m *Metrics) RecordCaptionWritten(ctx context.Context, format string) {
	m.CaptionsWritten.Add(ctx, 1,
		metric.WithAttributes(attribute.String("format", format)),
	)
}

// RecordUtterances adds n to the utterance counter.
func (m *Metrics) RecordUtterances(ctx context.Context, n int) {
	m.Utterances.Add(ctx, int64(n))
}
