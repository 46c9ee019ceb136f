package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for HTTP, cache and scheduler metrics.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationDuration  *prometheus.HistogramVec
	sessionsPlaced      *prometheus.CounterVec
	underScheduled      prometheus.Gauge
	examsCreated        prometheus.Counter
	examsSkipped        prometheus.Counter
	rescheduleConflicts *prometheus.CounterVec
	snapshotsApproved   *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_generation_duration_seconds",
		Help:    "Time spent generating a draft timetable",
		Buckets: prometheus.DefBuckets,
	}, []string{"policy"})

	sessionsPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_sessions_placed_total",
		Help: "Sessions booked by the generator",
	}, []string{"kind"})

	underScheduled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_under_scheduled_courses",
		Help: "Assignments below their cadence after the last generation",
	})

	examsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_exams_created_total",
		Help: "Exams placed by the exam planner",
	})

	examsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_exams_skipped_total",
		Help: "Courses the exam planner could not place",
	})

	rescheduleConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_reschedule_conflicts_total",
		Help: "Moves rejected because the target was occupied",
	}, []string{"dimension"})

	snapshotsApproved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_snapshots_approved_total",
		Help: "Approved snapshots",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		generationDuration, sessionsPlaced, underScheduled, examsCreated, examsSkipped,
		rescheduleConflicts, snapshotsApproved, goroutines,
	)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		generationDuration:  generationDuration,
		sessionsPlaced:      sessionsPlaced,
		underScheduled:      underScheduled,
		examsCreated:        examsCreated,
		examsSkipped:        examsSkipped,
		rescheduleConflicts: rescheduleConflicts,
		snapshotsApproved:   snapshotsApproved,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGeneration records one generator run.
func (m *MetricsService) ObserveGeneration(policy string, duration time.Duration, lectures, labs, underScheduled int) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(policy).Observe(duration.Seconds())
	m.sessionsPlaced.WithLabelValues("lecture").Add(float64(lectures))
	m.sessionsPlaced.WithLabelValues("lab").Add(float64(labs))
	m.underScheduled.Set(float64(underScheduled))
}

// ObserveExamPlan records exam planner output.
func (m *MetricsService) ObserveExamPlan(created, skipped int) {
	if m == nil {
		return
	}
	m.examsCreated.Add(float64(created))
	m.examsSkipped.Add(float64(skipped))
}

// RecordRescheduleConflict counts a rejected move.
func (m *MetricsService) RecordRescheduleConflict(dimension string) {
	if m == nil {
		return
	}
	m.rescheduleConflicts.WithLabelValues(dimension).Inc()
}

// RecordSnapshotApproved counts an approval.
func (m *MetricsService) RecordSnapshotApproved(kind string) {
	if m == nil {
		return
	}
	m.snapshotsApproved.WithLabelValues(kind).Inc()
}
