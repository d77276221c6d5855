package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/backpine/users-service/docs"
	"github.com/backpine/users-service/internal/api/handler"
	"github.com/backpine/users-service/internal/api/middleware"
	"github.com/backpine/users-service/internal/core/ports"
	"github.com/backpine/users-service/internal/core/scope"
	infrahttp "github.com/backpine/users-service/internal/infrastructure/http"
	"github.com/backpine/users-service/internal/infrastructure/http/handlers"
	"github.com/backpine/users-service/internal/rpc"
)

// Dependencies is everything NewRouter wires into the HTTP surface.
type Dependencies struct {
	Bindings *scope.Bindings
	Users    ports.UserService
	Logger   zerolog.Logger
	// Checks are the readiness probes, keyed by dependency name.
	Checks map[string]handlers.Check
	// Registerer and Gatherer default to the Prometheus globals when nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	// Outside the logger so it observes the status the error handler committed.
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
	}))
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(middleware.ProvideBindings(deps.Bindings))

	// --- Handlers ---
	healthHandler := handler.NewHealthHandler()
	userHandler := handler.NewUserHandler(deps.Users)
	rpcServer := rpc.NewServer(deps.Users, deps.Logger.With().Str("component", "rpc").Logger())

	// Each user route holds a database handle for the duration of the handler.
	withDB := []echo.MiddlewareFunc{middleware.RequireBindings(), middleware.ProvideDatabase()}

	// --- API routes ---
	api := e.Group("/api")
	api.GET("/health", healthHandler.Check)
	api.GET("/users", userHandler.List, withDB...)
	api.GET("/users/:id", userHandler.Get, withDB...)
	api.POST("/users", userHandler.Create, withDB...)
	api.GET("/docs/*", echoSwagger.WrapHandler)

	// --- RPC: provisioning happens per call and failures travel in the envelope ---
	e.POST("/rpc", rpcServer.Handle)

	// --- Health probes and metrics ---
	infrahttp.RegisterOps(e, deps.Checks, deps.Gatherer)

	return e
}
