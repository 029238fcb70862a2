package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	syncTotal           *prometheus.CounterVec
	syncDuration        *prometheus.HistogramVec
	ceremoniesFinalized prometheus.Counter
	outingsSaved        prometheus.Counter
	importedRows        *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "terreiro_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		}, []string{"route", "method", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "terreiro_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"route"}),
		syncTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "terreiro_sync_total",
			Help: "table snapshot writes by table and result",
		}, []string{"table", "result"}),
		syncDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "terreiro_sync_duration_seconds",
			Help:    "latency of a full-table replace",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"table"}),
		ceremoniesFinalized: f.NewCounter(prometheus.CounterOpts{
			Name: "terreiro_ceremonies_finalized_total",
			Help: "ceremony sessions finalized into history",
		}),
		outingsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "terreiro_outings_saved_total",
			Help: "external event carpool plans saved",
		}),
		importedRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "terreiro_member_import_rows_total",
			Help: "member CSV import rows by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveHTTP(route, method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveSync(table string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.syncTotal.WithLabelValues(table, result).Inc()
	m.syncDuration.WithLabelValues(table).Observe(d.Seconds())
}

func (m *Metrics) CeremonyFinalized() {
	if m == nil {
		return
	}
	m.ceremoniesFinalized.Inc()
}

func (m *Metrics) OutingSaved() {
	if m == nil {
		return
	}
	m.outingsSaved.Inc()
}

func (m *Metrics) ImportRows(imported, failed int) {
	if m == nil {
		return
	}
	m.importedRows.WithLabelValues("imported").Add(float64(imported))
	m.importedRows.WithLabelValues("failed").Add(float64(failed))
}
