package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/logger"
	"go.uber.org/zap"
)

// monthValue accepts a month as a JSON string ("March", "3") or number (3).
type monthValue string

func (m *monthValue) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*m = monthValue(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*m = monthValue(strings.TrimSpace(s))
	return nil
}

type generateRequest struct {
	Month       monthValue `json:"month" validate:"required"`
	Year        int        `json:"year" validate:"required"`
	ApartmentID string     `json:"apartmentId"`
}

type billUpdateRequest struct {
	Status  *model.BillStatus `json:"status" validate:"omitempty,oneof=Paid Unpaid"`
	Amount  *decimal.Decimal  `json:"amount"`
	DueDate *string           `json:"dueDate"`
}

// ListBills handles GET /api/admin/bills?apartmentId=&flatId=&month=&year=&status=
func (h *Handler) ListBills(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing bills with filters")

	year, err := intQuery(c, "year")
	if err != nil {
		return respondError(c, err)
	}
	bills, err := h.Billing.List(c.Request().Context(), service.BillFilter{
		ApartmentID: c.QueryParam("apartmentId"),
		FlatID:      c.QueryParam("flatId"),
		Month:       c.QueryParam("month"),
		Year:        year,
		Status:      model.BillStatus(c.QueryParam("status")),
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Bills retrieved successfully", zap.Int("count", len(bills)))
	return c.JSON(http.StatusOK, bills)
}

// GenerateBills handles POST /api/admin/bills/generate
func (h *Handler) GenerateBills(c echo.Context) error {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	log := logger.FromContext(c)
	log.Info("Generating monthly bills",
		zap.String("month", string(req.Month)),
		zap.Int("year", req.Year),
		zap.String("apartment_id", req.ApartmentID))

	res, err := h.Billing.Generate(c.Request().Context(), service.GenerateInput{
		Month:       string(req.Month),
		Year:        req.Year,
		ApartmentID: req.ApartmentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateBill handles PUT /api/admin/bills/:id
func (h *Handler) UpdateBill(c echo.Context) error {
	var req billUpdateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	in := service.BillUpdate{Status: req.Status, Amount: req.Amount}
	if req.DueDate != nil {
		due, err := service.ParseDate(*req.DueDate)
		if err != nil {
			return respondError(c, err)
		}
		in.DueDate = &due
	}
	bill, err := h.Billing.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bill)
}

