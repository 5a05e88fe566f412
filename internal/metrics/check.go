package metrics

import "github.com/prometheus/client_golang/prometheus"

// Citation-check Prometheus metrics.
var (
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geotrack",
			Name:      "engine_requests_total",
			Help:      "Total number of answer-engine requests",
		},
		[]string{"engine", "model", "status"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geotrack",
			Name:      "engine_request_duration_seconds",
			Help:      "Answer-engine request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"engine", "model"},
	)

	EngineErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geotrack",
			Name:      "engine_errors_total",
			Help:      "Total answer-engine errors",
		},
		[]string{"engine", "model", "error_type"},
	)

	CitationChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geotrack",
			Name:      "citation_checks_total",
			Help:      "Per-query citation check outcomes",
		},
		[]string{"engine", "result"}, // "cited" / "not_cited" / "failed"
	)

	CheckRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geotrack",
			Name:      "check_runs_total",
			Help:      "Completed project check runs",
		},
		[]string{"engine", "status"}, // "ok" / "partial" / "fatal"
	)
)

var checkMetricsRegistered bool

// RegisterCheckMetrics registers citation-check metrics. Must be called once from main.
func RegisterCheckMetrics() {
	if checkMetricsRegistered {
		return
	}
	prometheus.MustRegister(EngineRequestsTotal)
	prometheus.MustRegister(EngineRequestDuration)
	prometheus.MustRegister(EngineErrorsTotal)
	prometheus.MustRegister(CitationChecksTotal)
	prometheus.MustRegister(CheckRunsTotal)
	checkMetricsRegistered = true
}
