package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeBlocked     = "blocked"
	OutcomeTransient   = "transient"
	OutcomePermanent   = "permanent"
	OutcomeFailed      = "failed"
	OutcomeEmpty       = "empty"
	OutcomeProcessed   = "processed"
)

// Manager owns the metrics of one process. A nil *Manager is valid and
// records nothing, so components can be built without metrics in tests.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	apiRequests    *prometheus.CounterVec
	apiRetries     prometheus.Counter
	passes         *prometheus.CounterVec
	passDuration   prometheus.Histogram
	repositories   *prometheus.CounterVec
	activityRows   prometheus.Counter
	cursor         prometheus.Gauge
	rankingSize    prometheus.Gauge
	publishFailure prometheus.Counter
}

// NewManager creates a manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "github_top100",
		subsystem:        "sync",
		histogramBuckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_requests_total",
		Help:      "Requests sent to the source API by outcome",
	}, []string{"outcome"})

	m.apiRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_retries_total",
		Help:      "Requests repeated after a transport failure",
	})

	m.passes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passes_total",
		Help:      "Sync passes by outcome",
	}, []string{"outcome"})

	m.passDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pass_duration_seconds",
		Help:      "Wall time of one sync pass",
		Buckets:   m.histogramBuckets,
	})

	m.repositories = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repositories_total",
		Help:      "Repositories handled by a pass by outcome",
	}, []string{"outcome"})

	m.activityRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "activity_rows_total",
		Help:      "Daily activity rows upserted",
	})

	m.cursor = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cursor",
		Help:      "Last persisted repository cursor",
	})

	m.rankingSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_size",
		Help:      "Rows in the ranking table after the last refresh",
	})

	m.publishFailure = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_failures_total",
		Help:      "Pass summaries that could not be published",
	})
}

func (m *Manager) RecordAPIRequest(outcome string) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(outcome).Inc()
}

func (m *Manager) RecordAPIRetry() {
	if m == nil {
		return
	}
	m.apiRetries.Inc()
}

func (m *Manager) RecordPass(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(outcome).Inc()
	m.passDuration.Observe(d.Seconds())
}

func (m *Manager) RecordRepository(outcome string) {
	if m == nil {
		return
	}
	m.repositories.WithLabelValues(outcome).Inc()
}

func (m *Manager) RecordActivityRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.activityRows.Add(float64(n))
}

func (m *Manager) SetCursor(v int64) {
	if m == nil {
		return
	}
	m.cursor.Set(float64(v))
}

func (m *Manager) SetRankingSize(n int) {
	if m == nil {
		return
	}
	m.rankingSize.Set(float64(n))
}

func (m *Manager) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailure.Inc()
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
