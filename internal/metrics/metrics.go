// Package metrics exposes Prometheus collectors for the HTTP API and the
// availability core.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	availableSlots = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "availability_available_slots",
			Help:    "Number of available hours returned per availability lookup",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 12, 24},
		},
	)
	schedulingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schedulings_created_total",
			Help: "Total number of bookings created",
		},
	)
	calendarPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_publish_errors_total",
			Help: "Total number of failed calendar event publications",
		},
	)
)

// Middleware records count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func ObserveAvailableSlots(n int) {
	availableSlots.Observe(float64(n))
}

func RecordSchedulingCreated() {
	schedulingsCreated.Inc()
}

func RecordCalendarPublishError() {
	calendarPublishErrors.Inc()
}
