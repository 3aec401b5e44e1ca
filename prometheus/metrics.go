package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"role"},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "society_owner_register_total",
			Help: "Total number of owner self-registrations",
		},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // token_missing, invalid_token, forbidden, invalid_credentials, ...
	)

	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	BillsGeneratedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_bills_written_total",
			Help: "Bills created or incremented, by source",
		},
		[]string{"source", "result"}, // source: monthly, expense; result: created, updated
	)

	ExpenseDistributionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_expense_distributions_total",
			Help: "Common expenses recorded, by distribution type",
		},
		[]string{"distribution_type"},
	)

	ReminderCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_arrear_reminders_total",
			Help: "Arrear reminders by outcome",
		},
		[]string{"outcome"}, // sent, no_contact, failed
	)

	EntityOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_entity_operations_total",
			Help: "Admin CRUD operations by entity",
		},
		[]string{"entity", "operation"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "society_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "society_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// InfoGauge carries the service version.
var InfoGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "society_info",
		Help: "Information about the society service",
	},
	[]string{"version"},
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(BillsGeneratedCounter)
	prometheus.MustRegister(ExpenseDistributionCounter)
	prometheus.MustRegister(ReminderCounter)
	prometheus.MustRegister(EntityOperationCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures a database operation; use as
// defer prometheus.TrackDBOperation("query")().
func TrackDBOperation(operation string) func() {
	start := time.Now()
	return func() {
		DBOperationDuration.With(prometheus.Labels{"operation": operation}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware captures request count and duration for each route
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(c.Response().Status),
			}
			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordLogin records a login attempt for a role
func RecordLogin(role string) {
	LoginCounter.With(prometheus.Labels{"role": role}).Inc()
}

// RecordBillWrite records a bill creation or increment
func RecordBillWrite(source, result string) {
	BillsGeneratedCounter.With(prometheus.Labels{"source": source, "result": result}).Inc()
}

// RecordExpense records a common expense distribution
func RecordExpense(distributionType string) {
	ExpenseDistributionCounter.With(prometheus.Labels{"distribution_type": distributionType}).Inc()
}

// RecordReminder records a reminder outcome
func RecordReminder(outcome string) {
	ReminderCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordEntityOperation records an admin CRUD operation
func RecordEntityOperation(entity, operation string) {
	EntityOperationCounter.With(prometheus.Labels{"entity": entity, "operation": operation}).Inc()
}
