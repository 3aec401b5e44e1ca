package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/society-service/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone"`
	FlatNo      string `json:"flat_no" validate:"required"`
	Password    string `json:"password" validate:"required,min=6"`
	ApartmentID string `json:"apartmentId"`
}

// AdminLogin handles POST /api/auth/admin/login
func (h *Handler) AdminLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	session, err := h.Auth.AdminLogin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// OwnerLogin handles POST /api/auth/owner/login
func (h *Handler) OwnerLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	session, err := h.Auth.OwnerLogin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// OwnerRegister handles POST /api/auth/owner/register
func (h *Handler) OwnerRegister(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	session, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		FlatNo:      req.FlatNo,
		Password:    req.Password,
		ApartmentID: req.ApartmentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// Me returns the authenticated principal.
func (h *Handler) Me(c echo.Context) error {
	cl := claims(c)
	p, err := h.Auth.Me(c.Request().Context(), cl.ID, cl.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
