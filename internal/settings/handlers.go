package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SaveHook runs after a successful save, e.g. to reschedule the poll task
// with the new interval.
type SaveHook func(Settings) error

// Handlers provides HTTP handlers for the settings document.
type Handlers struct {
	store  *Store
	onSave SaveHook
}

// NewHandlers creates a new settings handler.
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// SetSaveHook registers the post-save hook.
func (h *Handlers) SetSaveHook(hook SaveHook) {
	h.onSave = hook
}

// RegisterRoutes registers the settings routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
}

// GetSettings returns the effective settings with masked API keys.
// GET /api/v1/settings
func (h *Handlers) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Effective().Masked())
}

// UpdateSettings replaces the settings document.
// PUT /api/v1/settings
func (h *Handlers) UpdateSettings(c echo.Context) error {
	var input Settings
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if input.PollIntervalSeconds < MinPollIntervalSeconds || input.PollIntervalSeconds > 86400 {
		return echo.NewHTTPError(http.StatusBadRequest, "pollIntervalSeconds must be between 30 and 86400")
	}

	if err := h.store.Save(input); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.onSave != nil {
		if err := h.onSave(h.store.Effective()); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to apply settings: "+err.Error())
		}
	}

	return c.JSON(http.StatusOK, h.store.Effective().Masked())
}
