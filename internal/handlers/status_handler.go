package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/labstack/echo/v4"
)

// StatusHandler handles ephemeral statuses and the status viewer
type StatusHandler struct{}

func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// RegisterStatusRoutes registers status routes
func (h *StatusHandler) RegisterStatusRoutes(g *echo.Group) {
	g.GET("/statuses", h.ListStatuses)
	g.POST("/statuses", h.CreateStatus)
	g.POST("/statuses/:id/view", h.ViewStatus)
	g.GET("/statuses/viewer", h.CurrentViewer)
	g.POST("/statuses/viewer/next", h.NextStatus)
	g.POST("/statuses/viewer/previous", h.PreviousStatus)
	g.POST("/statuses/viewer/close", h.CloseViewer)
}

// ListStatuses returns the statuses that have not expired, newest first
func (h *StatusHandler) ListStatuses(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	statuses, err := scope.Statuses(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statuses)
}

// CreateStatus posts an image status that expires after 24 hours
func (h *StatusHandler) CreateStatus(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.CreateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	st, err := scope.CreateStatus(c.Request().Context(), req.Image)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, st)
}

// ViewStatus opens the viewer on a status and its author's other statuses
func (h *StatusHandler) ViewStatus(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	state, err := scope.ViewStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *StatusHandler) CurrentViewer(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scope.Viewer.Current())
}

func (h *StatusHandler) NextStatus(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scope.Viewer.Next())
}

func (h *StatusHandler) PreviousStatus(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scope.Viewer.Previous())
}

func (h *StatusHandler) CloseViewer(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scope.Viewer.Close())
}
