package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts gateway responses by route template and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "Gateway HTTP responses by route and status code.",
	}, []string{"route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "Gateway HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// BackendCalls counts calls to the PayBazaar backend by outcome
	// (ok, transport, business).
	BackendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_backend_calls_total",
		Help: "Calls to the PayBazaar backend by method and outcome.",
	}, []string{"method", "outcome"})

	RDCaptures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_rd_captures_total",
		Help: "Biometric captures by device profile and outcome.",
	}, []string{"device", "outcome"})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_exports_total",
		Help: "Spreadsheet exports by report kind.",
	}, []string{"report"})
)
