// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the patient collection operations.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	patientOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patient_operations_total",
			Help: "Patient collection operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	phiAccesses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_access_total",
			Help: "Audited accesses to patient data by action and status",
		},
		[]string{"action", "status"},
	)
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency labelled by route
// template, so /patient/:id is a single series.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			httpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// OperationRecorder counts patient collection operations.
type OperationRecorder struct{}

func (OperationRecorder) RecordOperation(op, outcome string) {
	patientOperations.WithLabelValues(op, outcome).Inc()
}

// RecordPHIAccess counts one audited access to patient data.
func RecordPHIAccess(action string, status int) {
	phiAccesses.WithLabelValues(action, strconv.Itoa(status)).Inc()
}
