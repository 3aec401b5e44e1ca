package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/society-service/internal/service"
)

type apartmentRequest struct {
	Name        string `json:"name" validate:"required"`
	Address     string `json:"address"`
	TotalFloors int    `json:"totalFloors" validate:"gt=0"`
}

type apartmentUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Address     *string `json:"address"`
	TotalFloors *int    `json:"totalFloors" validate:"omitempty,gt=0"`
}

func (h *Handler) ListApartments(c echo.Context) error {
	apartments, err := h.Apartments.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, apartments)
}

func (h *Handler) GetApartment(c echo.Context) error {
	apartment, err := h.Apartments.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, apartment)
}

func (h *Handler) CreateApartment(c echo.Context) error {
	var req apartmentRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	apartment, err := h.Apartments.Create(c.Request().Context(), service.ApartmentInput{
		Name:        req.Name,
		Address:     req.Address,
		TotalFloors: req.TotalFloors,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, apartment)
}

func (h *Handler) UpdateApartment(c echo.Context) error {
	var req apartmentUpdateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	apartment, err := h.Apartments.Update(c.Request().Context(), c.Param("id"), service.ApartmentUpdate{
		Name:        req.Name,
		Address:     req.Address,
		TotalFloors: req.TotalFloors,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, apartment)
}

func (h *Handler) DeleteApartment(c echo.Context) error {
	if err := h.Apartments.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "apartment deleted"})
}
