package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/logger"
	"go.uber.org/zap"
)

// OwnerDashboard handles GET /api/owner/dashboard
func (h *Handler) OwnerDashboard(c echo.Context) error {
	d, err := h.Dashboard.ForOwner(c.Request().Context(), claims(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// OwnerBills handles GET /api/owner/bills?status=
func (h *Handler) OwnerBills(c echo.Context) error {
	bills, err := h.Billing.List(c.Request().Context(), service.BillFilter{
		OwnerID: claims(c).ID,
		Status:  model.BillStatus(c.QueryParam("status")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bills)
}

// PayBill handles POST /api/owner/bills/:id/pay
func (h *Handler) PayBill(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	log.Info("Owner paying bill", zap.String("bill_id", id))

	bill, err := h.Billing.Pay(c.Request().Context(), claims(c).ID, id)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Bill paid successfully",
		zap.String("bill_id", id),
		zap.String("amount", bill.Amount.String()))
	return c.JSON(http.StatusOK, bill)
}

// OwnerArrears handles GET /api/owner/arrears
func (h *Handler) OwnerArrears(c echo.Context) error {
	arrears, err := h.Arrears.ForOwner(c.Request().Context(), claims(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, arrears)
}
