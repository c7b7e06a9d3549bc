package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpMetricsOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
)

func initHTTPMetrics() {
	httpMetricsOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"})

		httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"})
	})
}

// MetricsMiddleware records request counts and latency per matched route.
func MetricsMiddleware() gin.HandlerFunc {
	initHTTPMetrics()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
