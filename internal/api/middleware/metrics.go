package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	activeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"prefix"},
	)

	loginFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_login_failures_total",
			Help: "Failed login attempts",
		},
		[]string{"reason"},
	)

	leadsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_leads_created_total",
			Help: "Leads created",
		},
	)

	aiEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_ai_emails_total",
			Help: "AI email generation attempts",
		},
		[]string{"result"},
	)
)

// Metrics records request counts and latency labelled by chi route
// pattern, so path parameters do not create new series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeRequests.Inc()
		defer activeRequests.Dec()

		rw := wrap(w)

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := strconv.Itoa(rw.status)
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordRateLimited(prefix string) {
	rateLimitedTotal.WithLabelValues(prefix).Inc()
}

func RecordLoginFailure(reason string) {
	loginFailuresTotal.WithLabelValues(reason).Inc()
}

func RecordLeadCreated() {
	leadsCreatedTotal.Inc()
}

func RecordAIEmail(result string) {
	aiEmailsTotal.WithLabelValues(result).Inc()
}
