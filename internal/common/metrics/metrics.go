// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysisCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_calls_total",
			Help: "Total number of external analysis calls by document type and outcome",
		},
		[]string{"doc_type", "outcome"},
	)

	AnalysisCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "analysis_call_duration_seconds",
			Help: "Duration of external analysis calls in seconds",
		},
		[]string{"doc_type"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total number of final application submissions by outcome",
		},
		[]string{"outcome"},
	)

	LiveSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_sessions_active",
			Help: "Number of in-progress intake sessions",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path", "status"},
	)

	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_requests_total",
			Help: "Total number of proxied requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
)
