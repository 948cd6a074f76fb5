package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// NotificationHandler handles the notification list and unread count
type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.UnreadCount)
	g.POST("/notifications/:id/read", h.MarkRead)
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	list, err := scope.Bell.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	if err := scope.Bell.Load(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": scope.Bell.Unread()})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	if err := scope.Bell.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": scope.Bell.Unread()})
}
