package metrics

import (
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
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	doseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dose_status_transitions_total",
			Help: "Dose status changes by source and target status",
		},
		[]string{"from", "to"},
	)

	dispensesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_dispenses_total",
			Help: "Units dispensed from inventory lots",
		},
	)

	dispenseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_dispense_failures_total",
			Help: "Rejected dispense attempts by reason",
		},
		[]string{"reason"},
	)

	timelineRechains = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "treatment_timeline_rechains_total",
			Help: "Pending dose schedules rebuilt after a start date change",
		},
	)

	contactsDismissed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contacts_dismissed_total",
			Help: "Upcoming contacts dismissed by staff",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency labelled by the matched
// route template, so path parameters do not explode cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func RecordDoseTransition(from, to string) {
	if from == to {
		return
	}
	if from == "" {
		from = "NEW"
	}
	doseTransitions.WithLabelValues(from, to).Inc()
}

func RecordDispense() {
	dispensesTotal.Inc()
}

// RecordDispenseFailure counts a rejected dispense; reason is a short label
// such as "insufficient", "not_found" or "already_dispensed".
func RecordDispenseFailure(reason string) {
	dispenseFailures.WithLabelValues(reason).Inc()
}

func RecordRechain() {
	timelineRechains.Inc()
}

func RecordContactDismissed() {
	contactsDismissed.Inc()
}
