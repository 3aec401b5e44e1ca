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

type distributeRequest struct {
	ApartmentID      string                 `json:"apartmentId" validate:"required"`
	Title            string                 `json:"title" validate:"required"`
	Description      string                 `json:"description"`
	Amount           decimal.Decimal        `json:"amount"`
	Date             string                 `json:"date" validate:"required"`
	DistributionType model.DistributionType `json:"distributionType" validate:"required,oneof=fixed per_flat per_sqft"`
}

// ListExpenses handles GET /api/admin/expenses?apartmentId=&month=&year=
func (h *Handler) ListExpenses(c echo.Context) error {
	year, err := intQuery(c, "year")
	if err != nil {
		return respondError(c, err)
	}
	expenses, err := h.Expenses.List(c.Request().Context(), service.ExpenseFilter{
		ApartmentID: c.QueryParam("apartmentId"),
		Month:       c.QueryParam("month"),
		Year:        year,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, expenses)
}

// DistributeExpense handles POST /api/admin/expenses/distribute
func (h *Handler) DistributeExpense(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Distributing common expense")

	var req distributeRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	log.Info("Expense distribution request",
		zap.String("apartment_id", req.ApartmentID),
		zap.String("title", req.Title),
		zap.String("amount", req.Amount.String()),
		zap.String("distribution_type", string(req.DistributionType)))

	out, err := h.Expenses.Distribute(c.Request().Context(), service.DistributeInput{
		ApartmentID:      req.ApartmentID,
		Title:            req.Title,
		Description:      req.Description,
		Amount:           req.Amount,
		Date:             req.Date,
		DistributionType: req.DistributionType,
		CreatedBy:        claims(c).ID,
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Expense distributed successfully",
		zap.String("expense_id", out.Expense.ID),
		zap.Int("allocations", len(out.Allocations)))
	return c.JSON(http.StatusCreated, out)
}
