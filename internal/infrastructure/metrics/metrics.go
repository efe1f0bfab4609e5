// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the database pool.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hospicore/internal/infrastructure/storage/postgres"
)

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	poolTotalConns    prometheus.Gauge
	poolIdleConns     prometheus.Gauge
	poolAcquiredConns prometheus.Gauge
}

// New creates and registers the service collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospicore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospicore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hospicore",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		}),
		poolTotalConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hospicore",
			Subsystem: "db",
			Name:      "pool_total_conns",
			Help:      "Total connections in the pgx pool.",
		}),
		poolIdleConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hospicore",
			Subsystem: "db",
			Name:      "pool_idle_conns",
			Help:      "Idle connections in the pgx pool.",
		}),
		poolAcquiredConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hospicore",
			Subsystem: "db",
			Name:      "pool_acquired_conns",
			Help:      "Acquired connections in the pgx pool.",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestsInFlight,
		m.poolTotalConns,
		m.poolIdleConns,
		m.poolAcquiredConns,
	)

	return m
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware instruments requests with count, latency and in-flight gauges.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.requestsInFlight.Inc()

		c.Next()

		m.requestsInFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.requestsTotal.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}

// CollectPoolStats samples pool statistics until the context is cancelled.
func (m *Metrics) CollectPoolStats(ctx context.Context, pool *postgres.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := postgres.GetPoolStats(pool.Unwrap())
			m.poolTotalConns.Set(float64(stats.TotalConns))
			m.poolIdleConns.Set(float64(stats.IdleConns))
			m.poolAcquiredConns.Set(float64(stats.AcquiredConns))
		}
	}
}
