// Package metrics provides custom Prometheus metrics for the enrichment
// pipeline and its collaborators.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// EnrichmentMetrics contains all Prometheus metrics related to background
// enrichment runs. All receiver methods tolerate a nil receiver so callers
// can run without observability wired in.
type EnrichmentMetrics struct {
	StageOutcomes     *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	ReplyFallbacks    prometheus.Counter
	EventsPublished   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	IdentCacheHits    prometheus.Counter
	IdentCacheMisses  prometheus.Counter
	Reclassifications prometheus.Counter

	registry *prometheus.Registry
}

// NewEnrichmentMetrics creates a new instance of EnrichmentMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewEnrichmentMetrics(registry *prometheus.Registry) (*EnrichmentMetrics, error) {
	m := &EnrichmentMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize enrichment metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register enrichment metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for EnrichmentMetrics.
func (m *EnrichmentMetrics) initMetrics() error {
	m.StageOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_stage_outcomes_total",
		Help: "Total pipeline stage outcomes by stage and status.",
	}, []string{"stage", "status"})

	m.PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "enrichment_pipeline_duration_seconds",
		Help:    "Duration of full enrichment runs in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	m.ReplyFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_reply_fallbacks_total",
		Help: "Total replies served by the local fallback composer.",
	})

	m.EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_events_published_total",
		Help: "Total notification events published, by event name.",
	}, []string{"event"})

	m.EventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_events_dropped_total",
		Help: "Total notification events dropped on a full bus, by event name.",
	}, []string{"event"})

	m.IdentCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_identification_cache_hits_total",
		Help: "Total species identification cache hits.",
	})

	m.IdentCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_identification_cache_misses_total",
		Help: "Total species identification cache misses.",
	})

	m.Reclassifications = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_reclassifications_total",
		Help: "Total subjects moved between collections after identification.",
	})

	return nil
}

// RecordStageOutcome counts one stage result.
func (m *EnrichmentMetrics) RecordStageOutcome(stage, status string) {
	if m == nil {
		return
	}
	m.StageOutcomes.WithLabelValues(stage, status).Inc()
}

// ObservePipelineDuration records the duration of one enrichment run.
// The duration should be provided in seconds.
func (m *EnrichmentMetrics) ObservePipelineDuration(durationSeconds float64) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(durationSeconds)
}

// IncrementReplyFallbacks increases the fallback reply counter by one.
func (m *EnrichmentMetrics) IncrementReplyFallbacks() {
	if m == nil {
		return
	}
	m.ReplyFallbacks.Inc()
}

// RecordEventPublished counts a published notification event.
func (m *EnrichmentMetrics) RecordEventPublished(event string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(event).Inc()
}

// RecordEventDropped counts a notification event dropped on a full bus.
func (m *EnrichmentMetrics) RecordEventDropped(event string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(event).Inc()
}

// IncrementIdentCacheHits increases the identification cache hit counter by one.
func (m *EnrichmentMetrics) IncrementIdentCacheHits() {
	if m == nil {
		return
	}
	m.IdentCacheHits.Inc()
}

// IncrementIdentCacheMisses increases the identification cache miss counter by one.
func (m *EnrichmentMetrics) IncrementIdentCacheMisses() {
	if m == nil {
		return
	}
	m.IdentCacheMisses.Inc()
}

// IncrementReclassifications increases the collection move counter by one.
func (m *EnrichmentMetrics) IncrementReclassifications() {
	if m == nil {
		return
	}
	m.Reclassifications.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *EnrichmentMetrics) Collect(ch chan<- prometheus.Metric) {
	m.StageOutcomes.Collect(ch)
	ch <- m.PipelineDuration
	ch <- m.ReplyFallbacks
	m.EventsPublished.Collect(ch)
	m.EventsDropped.Collect(ch)
	ch <- m.IdentCacheHits
	ch <- m.IdentCacheMisses
	ch <- m.Reclassifications
}

// Describe implements the prometheus.Collector interface.
func (m *EnrichmentMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.StageOutcomes.Describe(ch)
	ch <- m.PipelineDuration.Desc()
	ch <- m.ReplyFallbacks.Desc()
	m.EventsPublished.Describe(ch)
	m.EventsDropped.Describe(ch)
	ch <- m.IdentCacheHits.Desc()
	ch <- m.IdentCacheMisses.Desc()
	ch <- m.Reclassifications.Desc()
}
