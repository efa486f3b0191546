// Package metrics exposes Prometheus collectors for the HTTP API, the
// reconciliation reports and the background worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/reports"
)

const namespace = "rwpay"

// Metrics owns its registry so tests and multiple binaries do not collide.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	reconcileLatency prometheus.Histogram
	monthlyIncome    *prometheus.GaugeVec
	residentBuckets  *prometheus.GaugeVec
	anomalies        *prometheus.CounterVec

	exports     *prometheus.CounterVec
	exportBytes *prometheus.HistogramVec

	jobRuns  *prometheus.CounterVec
	jobItems *prometheus.CounterVec
}

var _ reports.Observer = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reconcileLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Time to compute a monthly statistic, including reads.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		monthlyIncome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monthly_income",
			Help:      "Income of the last computed month by category.",
		}, []string{"month", "category"}),
		residentBuckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monthly_residents",
			Help:      "Residents per payment bucket for the last computed month.",
		}, []string{"month", "bucket"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_anomalies_total",
			Help:      "Anomalies reported by reconciliation runs.",
		}, []string{"kind"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Rendered report exports.",
		}, []string{"kind", "format"}),
		exportBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_size_bytes",
			Help:      "Size of rendered exports.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_job_runs_total",
			Help:      "Background job runs by result.",
		}, []string{"job", "result"}),
		jobItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_job_items_total",
			Help:      "Items processed by background jobs.",
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpLatency,
		m.reconcileLatency, m.monthlyIncome, m.residentBuckets, m.anomalies,
		m.exports, m.exportBytes,
		m.jobRuns, m.jobItems,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) MonthlyComputed(elapsed time.Duration, stat *reconciliation.MonthlyStatistic) {
	m.reconcileLatency.Observe(elapsed.Seconds())
	if stat == nil {
		return
	}

	month := stat.Month.String()
	for cat, amount := range stat.IncomeByCategory {
		m.monthlyIncome.WithLabelValues(month, string(cat)).Set(float64(amount))
	}
	m.residentBuckets.WithLabelValues(month, "fully_paid").Set(float64(len(stat.FullyPaid)))
	m.residentBuckets.WithLabelValues(month, "partially_paid").Set(float64(len(stat.PartiallyPaid)))
	m.residentBuckets.WithLabelValues(month, "unpaid").Set(float64(len(stat.Unpaid)))
	for _, a := range stat.Anomalies {
		m.anomalies.WithLabelValues(string(a.Kind)).Inc()
	}
}

func (m *Metrics) Exported(kind reports.ExportKind, format reports.Format, size int) {
	m.exports.WithLabelValues(string(kind), string(format)).Inc()
	m.exportBytes.WithLabelValues(string(format)).Observe(float64(size))
}

// JobFinished records one run of a worker job and how many items it handled.
func (m *Metrics) JobFinished(job string, items int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	if items > 0 {
		m.jobItems.WithLabelValues(job).Add(float64(items))
	}
}

// PoolStatsFunc reports total, acquired and idle connections.
type PoolStatsFunc func() (total, acquired, idle int32)

// WatchPool exposes database pool usage as gauges read at scrape time.
func (m *Metrics) WatchPool(stats PoolStatsFunc) {
	gauge := func(name, help string, pick func(total, acquired, idle int32) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(pick(stats()))
		})
	}
	m.registry.MustRegister(
		gauge("total_conns", "Open connections.", func(t, _, _ int32) int32 { return t }),
		gauge("acquired_conns", "Connections in use.", func(_, a, _ int32) int32 { return a }),
		gauge("idle_conns", "Idle connections.", func(_, _, i int32) int32 { return i }),
	)
}
