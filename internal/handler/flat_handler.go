package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/logger"
	"go.uber.org/zap"
)

type flatRequest struct {
	ApartmentID       string          `json:"apartmentId" validate:"required"`
	FlatNumber        string          `json:"flatNumber" validate:"required"`
	Floor             int             `json:"floor" validate:"gte=0"`
	UnitType          string          `json:"unitType"`
	AreaSqft          decimal.Decimal `json:"areaSqft"`
	MaintenanceCharge decimal.Decimal `json:"maintenanceCharge"`
}

type flatUpdateRequest struct {
	FlatNumber        *string          `json:"flatNumber" validate:"omitempty,min=1"`
	Floor             *int             `json:"floor" validate:"omitempty,gte=0"`
	UnitType          *string          `json:"unitType"`
	AreaSqft          *decimal.Decimal `json:"areaSqft"`
	MaintenanceCharge *decimal.Decimal `json:"maintenanceCharge"`
}

type assignOwnerRequest struct {
	OwnerID string `json:"ownerId" validate:"required"`
}

type transferRequest struct {
	FlatID     string `json:"flatId" validate:"required"`
	NewOwnerID string `json:"newOwnerId" validate:"required"`
}

// ListFlats handles GET /api/admin/flats?apartmentId=&occupied=
func (h *Handler) ListFlats(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing flats with filters")

	filter := service.FlatFilter{ApartmentID: c.QueryParam("apartmentId")}

	// Filter by occupancy if specified
	if v := c.QueryParam("occupied"); v != "" {
		occupied, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn("Invalid occupied parameter", zap.String("value", v), zap.Error(err))
			return respondError(c, invalidRequest("occupied must be true or false", err))
		}
		filter.Occupied = &occupied
	}
	flats, err := h.Flats.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Flats retrieved successfully", zap.Int("count", len(flats)))
	return c.JSON(http.StatusOK, flats)
}

func (h *Handler) GetFlat(c echo.Context) error {
	flat, err := h.Flats.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, flat)
}

func (h *Handler) CreateFlat(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new flat")

	var req flatRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	log.Info("Flat creation request",
		zap.String("apartment_id", req.ApartmentID),
		zap.String("flat_number", req.FlatNumber),
		zap.Int("floor", req.Floor))

	flat, err := h.Flats.Create(c.Request().Context(), service.FlatInput{
		ApartmentID:       req.ApartmentID,
		FlatNumber:        req.FlatNumber,
		Floor:             req.Floor,
		UnitType:          req.UnitType,
		AreaSqft:          req.AreaSqft,
		MaintenanceCharge: req.MaintenanceCharge,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, flat)
}

func (h *Handler) UpdateFlat(c echo.Context) error {
	var req flatUpdateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	flat, err := h.Flats.Update(c.Request().Context(), c.Param("id"), service.FlatUpdate{
		FlatNumber:        req.FlatNumber,
		Floor:             req.Floor,
		UnitType:          req.UnitType,
		AreaSqft:          req.AreaSqft,
		MaintenanceCharge: req.MaintenanceCharge,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, flat)
}

func (h *Handler) DeleteFlat(c echo.Context) error {
	if err := h.Flats.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "flat deleted"})
}

// AssignOwner handles PUT /api/admin/flats/:id/assign-owner
func (h *Handler) AssignOwner(c echo.Context) error {
	var req assignOwnerRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Assigning owner to flat",
		zap.String("flat_id", c.Param("id")),
		zap.String("owner_id", req.OwnerID))

	flat, err := h.Ownership.Assign(c.Request().Context(), c.Param("id"), req.OwnerID, claims(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, flat)
}

// UnassignOwner handles PUT /api/admin/flats/:id/unassign-owner
func (h *Handler) UnassignOwner(c echo.Context) error {
	flat, err := h.Ownership.Unassign(c.Request().Context(), c.Param("id"), claims(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, flat)
}

// TransferOwnership handles POST /api/admin/flats/transfer-ownership
func (h *Handler) TransferOwnership(c echo.Context) error {
	var req transferRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	log := logger.FromContext(c)
	log.Info("Transferring flat ownership",
		zap.String("flat_id", req.FlatID),
		zap.String("new_owner_id", req.NewOwnerID))

	flat, err := h.Ownership.Transfer(c.Request().Context(), req.FlatID, req.NewOwnerID, claims(c).ID)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Ownership transferred successfully", zap.String("flat_id", req.FlatID))
	return c.JSON(http.StatusOK, flat)
}

func (h *Handler) FlatHistory(c echo.Context) error {
	history, err := h.Ownership.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}
