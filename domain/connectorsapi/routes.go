// Package connectorsapi mounts the connectors core onto the demo host's
// Echo instance: the framework-agnostic Manager.Handle for inbound OAuth
// callbacks and webhooks, plus a thin scope-scoped REST surface for
// installing connectors and invoking actions.
package connectorsapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/ignitergo/connectors/connectors"
)

var Module = fx.Module("connectorsapi",
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes wires the connectors core into the demo host's Echo
// instance under /api/connectors.
func RegisterRoutes(e *echo.Echo, mgr *connectors.Manager) {
	h := &Handler{mgr: mgr}

	g := e.Group("/api/connectors")
	g.Any("/*", h.dispatch)

	scoped := g.Group("/:scope/:identity")
	scoped.GET("", h.list)
	scoped.POST("/:connector/install", h.install)
	scoped.POST("/:connector/disconnect", h.disconnect)
	scoped.POST("/:connector/oauth/start", h.startOAuth)
	scoped.POST("/:connector/actions/:action", h.callAction)
}

// Handler adapts connectors.Manager to Echo. The underlying operations are
// all framework-agnostic; this is purely routing and request decoding.
type Handler struct {
	mgr *connectors.Manager
}

// dispatch forwards any request under /api/connectors/* that is NOT one of
// the scoped REST routes above (i.e. an OAuth callback or webhook) to
// Manager.Handle, which parses the URL shape itself.
func (h *Handler) dispatch(c echo.Context) error {
	result := h.mgr.Handle(c.Response(), c.Request())
	if result.RedirectURL != "" {
		return c.Redirect(http.StatusFound, result.RedirectURL)
	}
	if result.Body == nil {
		return c.NoContent(result.StatusCode)
	}
	return c.JSON(result.StatusCode, result.Body)
}

func (h *Handler) list(c echo.Context) error {
	opts := connectors.ListOptions{
		WhereName:        c.QueryParam("name"),
		CountConnections: c.QueryParam("countConnections") == "true",
	}
	entries, err := h.mgr.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"connectors": entries})
}

// installRequest carries both the connector config and, for OAuth
// connectors, where the browser should land after the provider redirect.
type installRequest struct {
	Config      map[string]any `json:"config"`
	RedirectURL string         `json:"redirectUrl"`
}

func (h *Handler) install(c echo.Context) error {
	view, err := h.mgr.Scope(c.Param("scope"), c.Param("identity"))
	if err != nil {
		return err
	}

	var body installRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := view.Install(c.Request().Context(), c.Response(), c.Param("connector"), body.Config, body.RedirectURL)
	if err != nil {
		return err
	}
	if result.RedirectURL != "" {
		return c.Redirect(http.StatusFound, result.RedirectURL)
	}
	return c.JSON(http.StatusOK, result.Record)
}

func (h *Handler) disconnect(c echo.Context) error {
	view, err := h.mgr.Scope(c.Param("scope"), c.Param("identity"))
	if err != nil {
		return err
	}
	if err := view.Disconnect(c.Request().Context(), c.Param("connector")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) startOAuth(c echo.Context) error {
	var body struct {
		Custom      map[string]any `json:"custom"`
		RedirectURL string         `json:"redirectUrl"`
	}
	_ = c.Bind(&body)

	authURL, err := h.mgr.StartOAuth(c.Request().Context(), c.Response(),
		c.Param("scope"), c.Param("identity"), c.Param("connector"), body.Custom, body.RedirectURL)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callAction(c echo.Context) error {
	view, err := h.mgr.Scope(c.Param("scope"), c.Param("identity"))
	if err != nil {
		return err
	}

	var input any
	_ = c.Bind(&input)

	result, err := view.Action(c.Param("connector"), c.Param("action")).Call(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
