package observability

import (
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the forecast BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration      *prometheus.HistogramVec
	externalErrors       *prometheus.CounterVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	occurrencesProjected *prometheus.CounterVec
	dashboardsTotal      *prometheus.CounterVec
	overcommitted        prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "financeos_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financeos_external_errors_total",
				Help: "Total errors from the data-access layer.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financeos_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financeos_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		occurrencesProjected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financeos_occurrences_projected_total",
				Help: "Total rule occurrences produced by the projection engine.",
			},
			[]string{"window"},
		),
		dashboardsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financeos_dashboards_total",
				Help: "Total dashboards computed.",
			},
			[]string{"status"},
		),
		overcommitted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "financeos_overcommitted_dashboards_total",
				Help: "Dashboards whose safe-to-spend came out negative.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// AddOccurrences counts occurrences projected for a window ("bills", "burndown").
func (m *Metrics) AddOccurrences(window string, n int) {
	m.occurrencesProjected.WithLabelValues(window).Add(float64(n))
}

// IncrDashboard increments the dashboard counter with a status label.
func (m *Metrics) IncrDashboard(status string) {
	m.dashboardsTotal.WithLabelValues(status).Inc()
}

// IncrOvercommitted counts a dashboard with negative safe-to-spend.
func (m *Metrics) IncrOvercommitted() {
	m.overcommitted.Inc()
}

// GetForecastSnapshot returns a snapshot of forecast metrics suitable for
// the GET /v1/metrics/forecast endpoint.
func (m *Metrics) GetForecastSnapshot() *domain.ForecastMetrics {
	// Prometheus counters expose cumulative values.
	success := getCounterValue(m.dashboardsTotal, "success")
	errCount := getCounterValue(m.dashboardsTotal, "error")
	occurrences := getCounterValue(m.occurrencesProjected, "bills") +
		getCounterValue(m.occurrencesProjected, "burndown")
	cacheHits := getCounterValue(m.cacheHits, "rules")
	cacheMisses := getCounterValue(m.cacheMisses, "rules")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if success+errCount > 0 {
		errorRate = errCount / (success + errCount)
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.ForecastMetrics{
		DashboardsComputed:   int64(success),
		DashboardErrors:      int64(errCount),
		ErrorRate:            errorRate,
		OccurrencesProjected: int64(occurrences),
		OvercommittedCount:   int64(metricValue(m.overcommitted)),
		RuleCacheHitRate:     cacheHitRate,
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return metricValue(cv.WithLabelValues(label))
}

func metricValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
