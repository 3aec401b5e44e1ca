package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/society-service/internal/handler"
	"github.com/suteetoe/society-service/internal/middleware"
	"github.com/suteetoe/society-service/internal/notify"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/config"
	"github.com/suteetoe/society-service/pkg/jwtutil"
	"github.com/suteetoe/society-service/pkg/logger"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP server is built from. Notifier
// defaults to a LogNotifier.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Notifier notify.Notifier
}

// Server is the society REST API.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	log  *zap.Logger
}

// New wires services, handlers and routes.
func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}

	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      d.Config.JWT.SigningKey,
		ExpirationHours: d.Config.JWT.ExpirationHours,
	})

	h := &handler.Handler{
		DB:         d.DB,
		Auth:       service.NewAuthService(d.DB, log, jwt),
		Apartments: service.NewApartmentService(d.DB, log),
		Flats:      service.NewFlatService(d.DB, log),
		Owners:     service.NewOwnerService(d.DB, log),
		Ownership:  service.NewOwnershipService(d.DB, log),
		Billing:    service.NewBillingService(d.DB, log, d.Config.Billing.DefaultMaintenanceCharge),
		Expenses:   service.NewExpenseService(d.DB, log),
		Arrears:    service.NewArrearService(d.DB, log, notifier),
		Dashboard:  service.NewDashboardService(d.DB, log),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	registerRoutes(e, h, jwt)
	return &Server{echo: e, cfg: d.Config, log: log}
}

func registerRoutes(e *echo.Echo, h *handler.Handler, jwt *jwtutil.JWTUtil) {
	authenticate := middleware.Authenticate(jwt)

	// Public routes
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/admin/login", h.AdminLogin)
	auth.POST("/owner/login", h.OwnerLogin)
	auth.POST("/owner/register", h.OwnerRegister)
	auth.GET("/me", h.Me, authenticate)

	admin := api.Group("/admin", authenticate, middleware.RequireRole(jwtutil.RoleAdmin))

	apartments := admin.Group("/apartments")
	apartments.GET("", h.ListApartments)
	apartments.POST("", h.CreateApartment)
	apartments.GET("/:id", h.GetApartment)
	apartments.PUT("/:id", h.UpdateApartment)
	apartments.DELETE("/:id", h.DeleteApartment)

	flats := admin.Group("/flats")
	flats.GET("", h.ListFlats)
	flats.POST("", h.CreateFlat)
	flats.POST("/transfer-ownership", h.TransferOwnership)
	flats.GET("/:id", h.GetFlat)
	flats.PUT("/:id", h.UpdateFlat)
	flats.DELETE("/:id", h.DeleteFlat)
	flats.PUT("/:id/assign-owner", h.AssignOwner)
	flats.PUT("/:id/unassign-owner", h.UnassignOwner)
	flats.GET("/:id/history", h.FlatHistory)

	owners := admin.Group("/owners")
	owners.GET("", h.ListOwners)
	owners.POST("", h.CreateOwner)
	owners.GET("/unassigned", h.UnassignedOwners)
	owners.GET("/:id", h.GetOwner)
	owners.PUT("/:id", h.UpdateOwner)
	owners.DELETE("/:id", h.DeleteOwner)

	bills := admin.Group("/bills")
	bills.GET("", h.ListBills)
	bills.POST("/generate", h.GenerateBills)
	bills.PUT("/:id", h.UpdateBill)

	expenses := admin.Group("/expenses")
	expenses.GET("", h.ListExpenses)
	expenses.POST("/distribute", h.DistributeExpense)

	arrears := admin.Group("/arrears")
	arrears.GET("", h.ListArrears)
	arrears.POST("", h.CreateArrear)
	arrears.GET("/export", h.ExportArrears)
	arrears.POST("/sync", h.SyncArrears)
	arrears.POST("/:id/reminder", h.SendReminder)
	arrears.POST("/:id/payment", h.RecordArrearPayment)

	owner := api.Group("/owner", authenticate, middleware.RequireRole(jwtutil.RoleOwner))
	owner.GET("/dashboard", h.OwnerDashboard)
	owner.GET("/bills", h.OwnerBills)
	owner.POST("/bills/:id/pay", h.PayBill)
	owner.GET("/arrears", h.OwnerArrears)
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := ":" + s.cfg.Server.Port
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", zap.String("port", s.cfg.Server.Port))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("Shutting down server", zap.Duration("timeout", timeout))
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
