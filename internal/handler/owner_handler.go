package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/service"
)

type ownerRequest struct {
	Name     string            `json:"name" validate:"required"`
	Email    string            `json:"email" validate:"omitempty,email"`
	Phone    string            `json:"phone"`
	Password string            `json:"password" validate:"omitempty,min=6"`
	Status   model.OwnerStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

type ownerUpdateRequest struct {
	Name     *string            `json:"name" validate:"omitempty,min=1"`
	Email    *string            `json:"email"`
	Phone    *string            `json:"phone"`
	Password *string            `json:"password" validate:"omitempty,min=6"`
	Status   *model.OwnerStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ListOwners handles GET /api/admin/owners?status=&search=
func (h *Handler) ListOwners(c echo.Context) error {
	owners, err := h.Owners.List(c.Request().Context(), service.OwnerFilter{
		Status: model.OwnerStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, owners)
}

func (h *Handler) UnassignedOwners(c echo.Context) error {
	owners, err := h.Owners.Unassigned(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, owners)
}

func (h *Handler) GetOwner(c echo.Context) error {
	owner, err := h.Owners.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, owner)
}

func (h *Handler) CreateOwner(c echo.Context) error {
	var req ownerRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	owner, err := h.Owners.Create(c.Request().Context(), service.OwnerInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Status:   req.Status,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, owner)
}

func (h *Handler) UpdateOwner(c echo.Context) error {
	var req ownerUpdateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	owner, err := h.Owners.Update(c.Request().Context(), c.Param("id"), service.OwnerUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Status:   req.Status,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, owner)
}

func (h *Handler) DeleteOwner(c echo.Context) error {
	if err := h.Owners.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "owner deleted"})
}
