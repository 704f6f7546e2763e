package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the CRM backend.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration      *prometheus.HistogramVec
	storeErrors          *prometheus.CounterVec
	requestsTotal        *prometheus.CounterVec
	scopeDenials         *prometheus.CounterVec
	submissionsProcessed prometheus.Counter
	submissionsReceived  prometheus.Counter
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
				Name:    "crm_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_store_errors_total",
				Help: "Total storage backend errors.",
			},
			[]string{"backend"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		scopeDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_scope_denials_total",
				Help: "Total access-scope denials by reason.",
			},
			[]string{"reason"},
		),
		submissionsProcessed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crm_form_submissions_processed_total",
				Help: "Total form submissions converted into clients.",
			},
		),
		submissionsReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crm_form_submissions_received_total",
				Help: "Total anonymous form submissions accepted.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the backend error counter.
func (m *Metrics) IncrStoreError(backend string) {
	m.storeErrors.WithLabelValues(backend).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrScopeDenial increments the scope denial counter.
func (m *Metrics) IncrScopeDenial(reason string) {
	m.scopeDenials.WithLabelValues(reason).Inc()
}

// IncrSubmissionProcessed counts a pending→processed transition.
func (m *Metrics) IncrSubmissionProcessed() {
	m.submissionsProcessed.Inc()
}

// IncrSubmissionReceived counts an accepted anonymous submission.
func (m *Metrics) IncrSubmissionReceived() {
	m.submissionsReceived.Inc()
}

// OpsSnapshot is a JSON-friendly view of the counters, served at
// GET /v1/metrics/summary for dashboards that do not scrape Prometheus.
type OpsSnapshot struct {
	TotalRequests        int64   `json:"totalRequests"`
	ErrorRate            float64 `json:"errorRate"`
	SubmissionsReceived  int64   `json:"submissionsReceived"`
	SubmissionsProcessed int64   `json:"submissionsProcessed"`
	Period               string  `json:"period"`
}

// GetOpsSnapshot gathers current counter values.
// Prometheus counters are cumulative, so the snapshot covers process lifetime.
func (m *Metrics) GetOpsSnapshot() *OpsSnapshot {
	success := getCounterValue(m.requestsTotal, "success")
	errored := getCounterValue(m.requestsTotal, "error")
	total := success + errored

	errorRate := float64(0)
	if total > 0 {
		errorRate = errored / total
	}

	return &OpsSnapshot{
		TotalRequests:        int64(total),
		ErrorRate:            errorRate,
		SubmissionsReceived:  int64(getSingleCounterValue(m.submissionsReceived)),
		SubmissionsProcessed: int64(getSingleCounterValue(m.submissionsProcessed)),
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
