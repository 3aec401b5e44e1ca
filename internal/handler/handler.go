package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/society-service/internal/middleware"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/jwtutil"
	"github.com/suteetoe/society-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler serves the REST API on top of the domain services.
type Handler struct {
	DB         *gorm.DB
	Auth       *service.AuthService
	Apartments *service.ApartmentService
	Flats      *service.FlatService
	Owners     *service.OwnerService
	Ownership  *service.OwnershipService
	Billing    *service.BillingService
	Expenses   *service.ExpenseService
	Arrears    *service.ArrearService
	Dashboard  *service.DashboardService
}

// respondError writes err as {message, error?} with the status its kind
// maps to.
func respondError(c echo.Context, err error) error {
	status, message := classify(err)
	log := logger.FromContext(c)
	body := echo.Map{"message": message}

	var se *service.Error
	if errors.As(err, &se) && se.Err != nil {
		body["error"] = se.Err.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Warn("Request rejected", zap.Int("status", status), zap.String("reason", message))
	}
	return c.JSON(status, body)
}

func classify(err error) (int, string) {
	var status int
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrInactive):
		return http.StatusForbidden, service.ErrInactive.Error()
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrNoContact):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDispatch):
		status = http.StatusBadGateway
	default:
		return http.StatusInternalServerError, "internal server error"
	}

	var se *service.Error
	if errors.As(err, &se) {
		return status, se.Message
	}
	return status, err.Error()
}

func invalidRequest(message string, err error) error {
	return &service.Error{Kind: service.ErrInvalidInput, Message: message, Err: err}
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return invalidRequest("invalid request", err)
	}
	if err := c.Validate(req); err != nil {
		return invalidRequest(validationMessage(err), nil)
	}
	return nil
}

// claims returns the authenticated principal's token claims.
func claims(c echo.Context) *jwtutil.UserClaims {
	cl, ok := middleware.Claims(c)
	if !ok {
		return &jwtutil.UserClaims{}
	}
	return cl
}

// intQuery parses an optional integer query parameter.
func intQuery(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidRequest(name+" must be a number", err)
	}
	return n, nil
}
