// Package observe provides the observability primitives of spokenform:
// OpenTelemetry metrics, tracing, trace-aware logging and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from /metrics. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with their own [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/spokenform"

// Pipeline stage names used as the "stage" attribute.
const (
	StagePreProcess  = "pre_process"
	StageClassify    = "classify"
	StageParse       = "parse"
	StageVerbalize   = "verbalize"
	StagePostProcess = "post_process"
)

// Metrics holds all OpenTelemetry metric instruments of the engine.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// NormalizeDuration tracks end-to-end latency of one text.
	NormalizeDuration metric.Float64Histogram

	// StageDuration tracks latency per pipeline stage. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// GrammarBuildDuration tracks grammar construction, cache loads
	// included. Use with attributes:
	//   attribute.String("language", ...), attribute.Bool("cached", ...)
	GrammarBuildDuration metric.Float64Histogram

	// --- Counters ---

	// Normalizations counts processed texts. Use with attribute:
	//   attribute.String("status", "ok"|"fallback")
	Normalizations metric.Int64Counter

	// Fallbacks counts texts returned unchanged. Use with attribute:
	//   attribute.String("reason", ...)
	Fallbacks metric.Int64Counter

	// VariantsTried counts field-order variants handed to the verbalizer.
	VariantsTried metric.Int64Counter

	// --- Gauges ---

	// ActiveNormalizations tracks texts currently being processed.
	ActiveNormalizations metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// per-sentence work.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// buildBuckets covers grammar construction, which takes seconds.
var buildBuckets = []float64{
	0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.NormalizeDuration, err = m.Float64Histogram("spokenform.normalize.duration",
		metric.WithDescription("Latency of normalizing one text."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("spokenform.stage.duration",
		metric.WithDescription("Latency of one pipeline stage by stage name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GrammarBuildDuration, err = m.Float64Histogram("spokenform.grammar.build.duration",
		metric.WithDescription("Time to build or load the grammars of a language."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buildBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Normalizations, err = m.Int64Counter("spokenform.normalizations",
		metric.WithDescription("Total normalized texts by status."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("spokenform.fallbacks",
		metric.WithDescription("Total texts returned unchanged by failure reason."),
	); err != nil {
		return nil, err
	}
	if met.VariantsTried, err = m.Int64Counter("spokenform.permute.variants",
		metric.WithDescription("Total field-order variants tried against the verbalizer."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveNormalizations, err = m.Int64UpDownCounter("spokenform.active_normalizations",
		metric.WithDescription("Number of texts currently being normalized."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("spokenform.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
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

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordNormalization records the outcome of one text. An empty reason
// means success.
func (m *Metrics) RecordNormalization(ctx context.Context, d time.Duration, reason string) {
	m.NormalizeDuration.Record(ctx, d.Seconds())
	status := "ok"
	if reason != "" {
		status = "fallback"
		m.Fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
	m.Normalizations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordGrammarBuild records how long the grammars of language took to
// become available.
func (m *Metrics) RecordGrammarBuild(ctx context.Context, language string, cached bool, d time.Duration) {
	m.GrammarBuildDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("language", language),
			attribute.Bool("cached", cached),
		),
	)
}
