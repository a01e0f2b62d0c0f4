package httpx

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are shared across Router instances (tests construct several
// routers against the default registry), so registration happens once at
// package level and AlreadyRegistered fallbacks are unnecessary.
var (
	metricsSetup sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
	rateLimited  *prometheus.CounterVec
)

func setupMetrics() {
	metricsSetup.Do(func() {
		opts := func(name, help string) prometheus.Opts {
			return prometheus.Opts{Namespace: "notes", Subsystem: "api", Name: name, Help: help}
		}

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("http_requests_total", "Count of processed HTTP requests")),
			[]string{"method", "route", "status"})

		httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notes",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"})

		httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts(opts(
			"http_requests_in_flight", "Requests currently being served")))

		rateLimited = prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("rate_limit_hits_total", "Number of rate-limited responses")),
			[]string{"route", "key"})

		prometheus.MustRegister(httpRequests, httpLatency, httpInFlight, rateLimited)
	})
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	rateLimited.WithLabelValues(route, key).Inc()
}
