package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/botforge/storefront-admin/docs" // swagger docs
	"github.com/botforge/storefront-admin/internal/api/handler"
	"github.com/botforge/storefront-admin/internal/api/middleware"
	"github.com/botforge/storefront-admin/internal/core/policy"
	"github.com/botforge/storefront-admin/internal/core/ports"
	"github.com/botforge/storefront-admin/pkg/logger"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Sessions  ports.SessionService
	Gateway   ports.MutationGateway
	Directory ports.Directory
	Audit     ports.AuditLog

	// HealthChecks are probed by /health/ready, keyed by dependency name.
	HealthChecks map[string]handler.Check

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestScope(deps.Log))
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Sessions, deps.Gateway)
	accountHandler := handler.NewAccountHandler(deps.Gateway)
	adminHandler := handler.NewAdminHandler(deps.Directory, deps.Gateway, deps.Audit)
	authMiddleware := middleware.Auth(deps.Sessions)
	callerMiddleware := middleware.OptionalAuth(deps.Sessions)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register, callerMiddleware)
	e.POST("/auth/login", authHandler.Login, callerMiddleware)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)
	e.GET("/auth/me", authHandler.Me, authMiddleware)

	// --- Self-service ---
	me := e.Group("/v1/me", authMiddleware)
	me.PUT("/password", accountHandler.ChangePassword)
	me.PUT("/avatar", accountHandler.UpdateAvatar)

	// --- Admin panel ---
	admin := e.Group("/v1/admin", authMiddleware, middleware.RequirePolicy(policy.CanViewAdminPanel))
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id/role", adminHandler.ChangeRole)
	admin.POST("/users/:id/ban", adminHandler.Ban)
	admin.DELETE("/users/:id/ban", adminHandler.Unban)
	admin.PATCH("/users/:id/profile", adminHandler.EditProfile)
	admin.PUT("/users/:id/password", adminHandler.ResetPassword)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.GET("/audit", adminHandler.Audit, middleware.RequirePolicy(policy.CanReadAudit))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestScope seeds the request context with a logger tagged by request id;
// later middleware extends it.
func requestScope(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			scoped := log.With().Str("request_id", id).Logger()
			c.SetRequest(c.Request().WithContext(logger.Into(c.Request().Context(), scoped)))
			return next(c)
		}
	}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			scoped := logger.FromContext(c.Request().Context(), log.With().Str("request_id", v.RequestID).Logger())
			event := scoped.Info()
			if v.Status >= 500 {
				event = scoped.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
