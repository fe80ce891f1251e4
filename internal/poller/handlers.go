package poller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/haltarr/haltarr/internal/arr"
)

// RunTrigger starts a poll cycle outside the schedule. The composition
// root routes it through the scheduler's task so manual runs share the
// process-scoped cycle context and are aborted on shutdown like
// scheduled ones.
type RunTrigger func() error

// Handlers provides HTTP handlers for the poll engine's read model and
// mutation entry points.
type Handlers struct {
	service *Service
	runNow  RunTrigger
}

// NewHandlers creates a new poller handler.
func NewHandlers(service *Service, runNow RunTrigger) *Handlers {
	return &Handlers{service: service, runNow: runNow}
}

// RegisterRoutes registers the poller routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.GetStatus)
	g.POST("/run", h.RunNow)
	g.POST("/services/:service/test", h.TestConnection)
	g.GET("/services/:service/profiles", h.GetQualityProfiles)
	g.DELETE("/history", h.ClearHistory)
	g.DELETE("/changelog", h.ClearChangeLog)
}

// GetStatus returns the status read model.
// GET /api/v1/status
func (h *Handlers) GetStatus(c echo.Context) error {
	status, err := h.service.Status()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

// RunNow triggers a poll cycle outside the schedule.
// POST /api/v1/run
func (h *Handlers) RunNow(c echo.Context) error {
	if h.service.IsRunning() {
		return echo.NewHTTPError(http.StatusConflict, "a cycle is already running")
	}

	if err := h.runNow(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

// TestConnection probes one service's connectivity.
// POST /api/v1/services/:service/test
func (h *Handlers) TestConnection(c echo.Context) error {
	service, err := parseService(c)
	if err != nil {
		return err
	}

	status := h.service.TestConnection(c.Request().Context(), service)
	return c.JSON(http.StatusOK, status)
}

// GetQualityProfiles lists one service's quality profiles.
// GET /api/v1/services/:service/profiles
func (h *Handlers) GetQualityProfiles(c echo.Context) error {
	service, err := parseService(c)
	if err != nil {
		return err
	}

	profiles, err := h.service.FetchQualityProfiles(c.Request().Context(), service)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, profiles)
}

// ClearHistory empties the run history.
// DELETE /api/v1/history
func (h *Handlers) ClearHistory(c echo.Context) error {
	h.service.ClearHistory()
	return c.NoContent(http.StatusNoContent)
}

// ClearChangeLog truncates the durable change log.
// DELETE /api/v1/changelog
func (h *Handlers) ClearChangeLog(c echo.Context) error {
	if err := h.service.ClearChangeLog(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func parseService(c echo.Context) (arr.Service, error) {
	switch service := arr.Service(c.Param("service")); service {
	case arr.ServiceRadarr, arr.ServiceSonarr:
		return service, nil
	default:
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown service")
	}
}
