package prometheus

import (
	"fmt"
	"time"

	"github.com/bpointel/docintel/internal/domain/entity"
)

// PipelineMetrics holds every metric the extraction pipeline and its
// infrastructure report into.  It satisfies pipeline.Metrics so the driver
// can record tier activity without importing prometheus directly.
type PipelineMetrics struct {
	// Extraction tiers
	TierCandidatesTotal  CounterVec
	TierFailuresTotal    CounterVec
	TierDuration         HistogramVec
	LLMBudgetRejections  CounterVec
	LLMRequestsTotal     CounterVec
	LLMRequestDuration   HistogramVec

	// Documents and persistence
	DocumentsProcessedTotal     CounterVec
	DocumentDuration            HistogramVec
	EntitiesPersistedTotal      CounterVec
	RelationshipsPersistedTotal CounterVec

	// HTTP review API
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Infrastructure
	DBPoolSize         GaugeVec
	DBPoolAcquired     GaugeVec
	CacheHitsTotal     CounterVec
	CacheMissesTotal   CounterVec
	EventsPublished    CounterVec
	EventsFailed       CounterVec
	VectorSearchDuration HistogramVec
	HealthCheckStatus  GaugeVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultTierDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15, 60}
	DefaultLLMDurationBuckets  = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
)

// NewPipelineMetrics registers all pipeline metrics on the collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	m := &PipelineMetrics{}

	// Extraction tiers
	m.TierCandidatesTotal = collector.RegisterCounter("tier_candidates_total", "Candidate spans emitted per tier", "tier")
	m.TierFailuresTotal = collector.RegisterCounter("tier_failures_total", "Tier invocations that returned an error", "tier")
	m.TierDuration = collector.RegisterHistogram("tier_duration_seconds", "Tier invocation duration", DefaultTierDurationBuckets, "tier")
	m.LLMBudgetRejections = collector.RegisterCounter("llm_budget_rejections_total", "LLM fallback invocations suppressed by the call budget")
	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total", "LLM fallback requests", "status")
	m.LLMRequestDuration = collector.RegisterHistogram("llm_request_duration_seconds", "LLM fallback request duration", DefaultLLMDurationBuckets)

	// Documents and persistence
	m.DocumentsProcessedTotal = collector.RegisterCounter("documents_processed_total", "Documents run through the pipeline")
	m.DocumentDuration = collector.RegisterHistogram("document_duration_seconds", "Per-document pipeline duration", DefaultTierDurationBuckets)
	m.EntitiesPersistedTotal = collector.RegisterCounter("entities_persisted_total", "Entities upserted to storage")
	m.RelationshipsPersistedTotal = collector.RegisterCounter("relationships_persisted_total", "Relationships upserted to storage")

	// HTTP review API
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Infrastructure
	m.DBPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBPoolAcquired = collector.RegisterGauge("db_pool_acquired", "Database connections currently acquired", "db")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.EventsPublished = collector.RegisterCounter("events_published_total", "Events published to the broker", "topic")
	m.EventsFailed = collector.RegisterCounter("events_failed_total", "Event publishes that failed", "topic")
	m.VectorSearchDuration = collector.RegisterHistogram("vector_search_duration_seconds", "Reference entity similarity search duration", DefaultHTTPDurationBuckets)
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// pipeline.Metrics implementation
// ─────────────────────────────────────────────────────────────────────────────

func (m *PipelineMetrics) CandidatesObserved(tier entity.Tier, count int) {
	m.TierCandidatesTotal.WithLabelValues(tier.String()).Add(float64(count))
}

func (m *PipelineMetrics) TierFailure(tier entity.Tier) {
	m.TierFailuresTotal.WithLabelValues(tier.String()).Inc()
}

func (m *PipelineMetrics) LLMBudgetRejected() {
	m.LLMBudgetRejections.WithLabelValues().Inc()
}

func (m *PipelineMetrics) DocumentProcessed() {
	m.DocumentsProcessedTotal.WithLabelValues().Inc()
}

func (m *PipelineMetrics) EntitiesPersisted(count int) {
	m.EntitiesPersistedTotal.WithLabelValues().Add(float64(count))
}

func (m *PipelineMetrics) RelationshipsPersisted(count int) {
	m.RelationshipsPersistedTotal.WithLabelValues().Add(float64(count))
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording helpers
// ─────────────────────────────────────────────────────────────────────────────

// RecordHTTPRequest updates the HTTP counters for one completed request.
func (m *PipelineMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	status := fmt.Sprintf("%d", statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLLMRequest tracks one LLM fallback round-trip.
func (m *PipelineMetrics) RecordLLMRequest(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.LLMRequestsTotal.WithLabelValues(status).Inc()
	m.LLMRequestDuration.WithLabelValues().Observe(duration.Seconds())
}

// RecordCacheAccess tracks a hit or miss on the named cache.
func (m *PipelineMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordEventPublish tracks a broker publish attempt on the given topic.
func (m *PipelineMetrics) RecordEventPublish(topic string, err error) {
	if err != nil {
		m.EventsFailed.WithLabelValues(topic).Inc()
		return
	}
	m.EventsPublished.WithLabelValues(topic).Inc()
}

// SetPoolStats publishes connection pool gauges for the named database.
func (m *PipelineMetrics) SetPoolStats(db string, size, acquired int32) {
	m.DBPoolSize.WithLabelValues(db).Set(float64(size))
	m.DBPoolAcquired.WithLabelValues(db).Set(float64(acquired))
}

// SetHealth publishes a component health status gauge.
func (m *PipelineMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}
