// Package observe provides application-wide observability primitives for
// Veracall: OpenTelemetry metrics, tracing, and trace-aware structured
// logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via a standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Veracall metrics.
const meterName = "github.com/veracall/veracall"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// QADuration tracks segment validation + omission detection latency.
	QADuration metric.Float64Histogram

	// InferenceDuration tracks the external context-inference call latency,
	// including retries.
	InferenceDuration metric.Float64Histogram

	// EditDuration tracks the per-transcript editing stage latency.
	EditDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end run latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// OpsApplied counts editing operations. Use with attribute:
	//   attribute.String("kind", ...)
	OpsApplied metric.Int64Counter

	// SegmentsProcessed counts segments by validation status. Use with
	// attribute: attribute.String("status", "valid"|"invalid")
	SegmentsProcessed metric.Int64Counter

	// InferenceRetries counts context-inference retry attempts.
	InferenceRetries metric.Int64Counter

	// InferenceFailures counts runs that exhausted inference retries and
	// degraded to context-free editing.
	InferenceFailures metric.Int64Counter

	// HypothesesDemoted counts hypotheses rejected by evidence validation.
	// Use with attribute: attribute.String("hypothesis", "glossary"|"language_error")
	HypothesesDemoted metric.Int64Counter

	// --- Gauges ---

	// ActiveRuns tracks the number of pipeline runs in flight.
	ActiveRuns metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets accommodate LLM inference with retries.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.QADuration, err = m.Float64Histogram("veracall.qa.duration",
		metric.WithDescription("Latency of segment validation and omission detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("veracall.inference.duration",
		metric.WithDescription("Latency of the external context-inference call, including retries."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EditDuration, err = m.Float64Histogram("veracall.edit.duration",
		metric.WithDescription("Latency of the editing stage per transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("veracall.pipeline.duration",
		metric.WithDescription("End-to-end pipeline run latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.OpsApplied, err = m.Int64Counter("veracall.editor.ops",
		metric.WithDescription("Total editing operations applied, by kind."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsProcessed, err = m.Int64Counter("veracall.segments.processed",
		metric.WithDescription("Total segments processed, by validation status."),
	); err != nil {
		return nil, err
	}
	if met.InferenceRetries, err = m.Int64Counter("veracall.inference.retries",
		metric.WithDescription("Total context-inference retry attempts."),
	); err != nil {
		return nil, err
	}
	if met.InferenceFailures, err = m.Int64Counter("veracall.inference.failures",
		metric.WithDescription("Total runs degraded to context-free editing after retry exhaustion."),
	); err != nil {
		return nil, err
	}
	if met.HypothesesDemoted, err = m.Int64Counter("veracall.evidence.demotions",
		metric.WithDescription("Total hypotheses demoted by evidence validation, by hypothesis type."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveRuns, err = m.Int64UpDownCounter("veracall.active_runs",
		metric.WithDescription("Number of pipeline runs currently in flight."),
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

// RecordOp records one applied editing operation of the given kind.
func (m *Metrics) RecordOp(ctx context.Context, kind string) {
	m.OpsApplied.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}

// RecordSegment records one processed segment with its validation status.
func (m *Metrics) RecordSegment(ctx context.Context, status string) {
	m.SegmentsProcessed.Add(ctx, 1, metric.WithAttributes(Attr("status", status)))
}

// RecordDemotion records one hypothesis demoted by evidence validation.
func (m *Metrics) RecordDemotion(ctx context.Context, hypothesis string) {
	m.HypothesesDemoted.Add(ctx, 1, metric.WithAttributes(Attr("hypothesis", hypothesis)))
}
