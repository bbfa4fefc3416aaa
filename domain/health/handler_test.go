package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignitergo/connectors/internal/config"
)

func newTestEchoContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Health_NoManagerIsUnhealthy(t *testing.T) {
	h := NewHandler(nil, &config.Config{Environment: "local"})
	c, rec := newTestEchoContext(http.MethodGet, "/health")

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)
}

func TestHandler_Healthz_AlwaysOK(t *testing.T) {
	h := NewHandler(nil, &config.Config{})
	c, rec := newTestEchoContext(http.MethodGet, "/healthz")

	require.NoError(t, h.Healthz(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandler_Ready_NoManagerIsNotReady(t *testing.T) {
	h := NewHandler(nil, &config.Config{})
	c, rec := newTestEchoContext(http.MethodGet, "/ready")

	require.NoError(t, h.Ready(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_Debug_HiddenInProduction(t *testing.T) {
	h := NewHandler(nil, &config.Config{Environment: "production"})
	c, _ := newTestEchoContext(http.MethodGet, "/debug")

	err := h.Debug(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestHandler_Debug_AvailableOutsideProduction(t *testing.T) {
	h := NewHandler(nil, &config.Config{Environment: "local"})
	c, rec := newTestEchoContext(http.MethodGet, "/debug")

	require.NoError(t, h.Debug(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVmemOr_NilIsZero(t *testing.T) {
	assert.Equal(t, uint64(0), vmemOr(nil))
}
