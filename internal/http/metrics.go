package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and per-request collectors exposed on /metrics.
// Each instance owns its registry so test servers never collide.
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestCount    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_ms",
		Help:    "Duration of HTTP requests in ms",
		Buckets: []float64{0.1, 5, 15, 50, 100, 200, 300, 400, 500, 1000, 2000, 5000, 10000},
	}, []string{"method", "route", "status_code"})
	requestCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status_code"})
	registry.MustRegister(requestDuration, requestCount)

	return &Metrics{
		registry:        registry,
		requestDuration: requestDuration,
		requestCount:    requestCount,
	}
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// track records duration and count per request, labelled by the matched route
// template. The scrape and health endpoints are skipped to avoid circular
// measurements.
func (m *Metrics) track() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/metrics" || path == "/api/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = path
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := float64(time.Since(start).Milliseconds())

		m.requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(elapsed)
		m.requestCount.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
