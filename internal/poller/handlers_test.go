package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haltarr/haltarr/internal/arr"
)

func newTestRouter(t *testing.T, env *testEnv) *echo.Echo {
	return newTestRouterCtx(t, env, context.Background())
}

// newTestRouterCtx wires the run trigger the way the composition root
// does: the manual run executes under the process-scoped cycle context.
func newTestRouterCtx(t *testing.T, env *testEnv, runCtx context.Context) *echo.Echo {
	t.Helper()
	e := echo.New()
	h := NewHandlers(env.service, func() error {
		env.service.RunOnce(runCtx)
		return nil
	})
	h.RegisterRoutes(e.Group("/api/v1"))
	return e
}

func TestHandlers_GetStatus(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.radarr.items = []arr.Item{movie(1, true, true, "Remux-2160p")}
	env.service.RunOnce(context.Background())

	e := newTestRouter(t, env)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"running":false`)
	assert.Contains(t, body, `"recentRuns"`)
	assert.Contains(t, body, `"movie/1"`)
	assert.Contains(t, body, `"apiKey":"***"`, "API keys must be masked in the payload")
}

func TestHandlers_RunNowAccepted(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.radarr.items = []arr.Item{movie(1, true, true, "Remux-2160p")}

	e := newTestRouter(t, env)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	run, ok := env.history.Last(arr.ServiceRadarr)
	require.True(t, ok)
	assert.Equal(t, 1, run.Actioned)
}

func TestHandlers_RunNowHonorsCycleContext(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.radarr.items = []arr.Item{movie(1, true, true, "Remux-2160p")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestRouterCtx(t, env, ctx)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Zero(t, env.radarr.calls(),
		"manual runs execute under the cycle context, so shutdown stops them between items")
}

func TestHandlers_RunNowReportsTriggerFailure(t *testing.T) {
	env := setupTestEnv(t, nil)

	e := echo.New()
	h := NewHandlers(env.service, func() error {
		return errors.New("task \"poll\" is already running")
	})
	h.RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlers_UnknownServiceIs404(t *testing.T) {
	env := setupTestEnv(t, nil)

	e := newTestRouter(t, env)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/services/lidarr/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_TestConnection(t *testing.T) {
	env := setupTestEnv(t, nil)

	e := newTestRouter(t, env)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/services/radarr/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected":true`)
}

func TestHandlers_ClearEndpoints(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.radarr.items = []arr.Item{movie(1, true, true, "Remux-2160p")}
	env.service.RunOnce(context.Background())

	e := newTestRouter(t, env)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.history.List())

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/changelog", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	entries, err := env.changeLog.All()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
