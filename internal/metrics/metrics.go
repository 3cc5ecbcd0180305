package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requisition_transitions_total",
			Help: "Successful requisition status transitions.",
		},
		[]string{"from", "to"},
	)
	validationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "requisition_validation_failures_total",
			Help: "Submissions rejected because the responses did not satisfy the template snapshot.",
		},
	)
	conflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requisition_conflicts_total",
			Help: "Writes rejected because of a stale version.",
		},
		[]string{"operation"},
	)
	templatePublishesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "form_template_publishes_total",
			Help: "Form template versions published.",
		},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)
)

func ObserveTransition(from, to string) {
	transitionsTotal.WithLabelValues(from, to).Inc()
}

func ObserveValidationFailure() {
	validationFailuresTotal.Inc()
}

func ObserveConflict(operation string) {
	conflictsTotal.WithLabelValues(operation).Inc()
}

func ObserveTemplatePublish() {
	templatePublishesTotal.Inc()
}

// Middleware records request latency labelled by the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
