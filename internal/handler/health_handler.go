package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/society-service/prometheus"
)

// HealthCheck reports whether the service can reach its database.
func (h *Handler) HealthCheck(c echo.Context) error {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":  status,
		"service": "society-service",
	})
}

// MetricsHandler exposes Prometheus metrics
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
