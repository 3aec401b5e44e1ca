package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/logger"
	"go.uber.org/zap"
)

type arrearRequest struct {
	FlatID string          `json:"flatId" validate:"required"`
	Month  string          `json:"month" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ListArrears handles GET /api/admin/arrears?apartmentId=&month=&year=&status=&search=
func (h *Handler) ListArrears(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing arrears with filters")

	year, err := intQuery(c, "year")
	if err != nil {
		return respondError(c, err)
	}
	arrears, err := h.Arrears.List(c.Request().Context(), service.ArrearFilter{
		ApartmentID: c.QueryParam("apartmentId"),
		Month:       c.QueryParam("month"),
		Year:        year,
		Status:      model.ArrearStatus(c.QueryParam("status")),
		Search:      c.QueryParam("search"),
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Arrears retrieved successfully", zap.Int("count", len(arrears)))
	return c.JSON(http.StatusOK, arrears)
}

func (h *Handler) CreateArrear(c echo.Context) error {
	var req arrearRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	arrear, err := h.Arrears.Create(c.Request().Context(), service.ArrearInput{
		FlatID: req.FlatID,
		Month:  req.Month,
		Amount: req.Amount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, arrear)
}

// SyncArrears handles POST /api/admin/arrears/sync
func (h *Handler) SyncArrears(c echo.Context) error {
	res, err := h.Arrears.Sync(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SendReminder handles POST /api/admin/arrears/:id/reminder
func (h *Handler) SendReminder(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Sending arrear reminder", zap.String("arrear_id", id))

	arrear, err := h.Arrears.SendReminder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Reminder sent successfully", zap.String("arrear_id", id), zap.String("status", string(arrear.Status)))
	return c.JSON(http.StatusOK, echo.Map{"message": "reminder sent", "arrear": arrear})
}

// RecordArrearPayment handles POST /api/admin/arrears/:id/payment
func (h *Handler) RecordArrearPayment(c echo.Context) error {
	var req paymentRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Recording arrear payment",
		zap.String("arrear_id", c.Param("id")),
		zap.String("amount", req.Amount.String()))

	arrear, err := h.Arrears.RecordPayment(c.Request().Context(), c.Param("id"), req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, arrear)
}

// ExportArrears handles GET /api/admin/arrears/export. There is no export
// format yet.
func (h *Handler) ExportArrears(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, echo.Map{"message": "export not implemented"})
}
