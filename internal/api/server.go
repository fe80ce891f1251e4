// Package api assembles the HTTP surface: middleware, route registration,
// and server lifecycle. It only reads the engine's recorded state; the
// poll cycle is driven by the scheduler, never by a request.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/haltarr/haltarr/internal/poller"
	"github.com/haltarr/haltarr/internal/scheduler"
	"github.com/haltarr/haltarr/internal/settings"
	"github.com/haltarr/haltarr/internal/websocket"
)

// Server handles HTTP requests for the haltarr API.
type Server struct {
	echo   *echo.Echo
	hub    *websocket.Hub
	sched  *scheduler.Scheduler
	logger zerolog.Logger

	pollerHandlers   *poller.Handlers
	settingsHandlers *settings.Handlers
}

// NewServer creates a new API server instance.
func NewServer(
	pollerHandlers *poller.Handlers,
	settingsHandlers *settings.Handlers,
	hub *websocket.Hub,
	sched *scheduler.Scheduler,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:             e,
		hub:              hub,
		sched:            sched,
		logger:           logger.With().Str("component", "api").Logger(),
		pollerHandlers:   pollerHandlers,
		settingsHandlers: settingsHandlers,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	s.pollerHandlers.RegisterRoutes(api)
	s.settingsHandlers.RegisterRoutes(api)
	api.GET("/tasks", s.listTasks)

	s.echo.GET("/ws", s.hub.HandleWebSocket)
}

// Start starts the HTTP server.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// listTasks exposes the scheduler's registered tasks with their last and
// next run times.
// GET /api/v1/tasks
func (s *Server) listTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sched.ListTasks())
}
