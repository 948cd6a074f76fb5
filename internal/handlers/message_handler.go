package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/labstack/echo/v4"
)

// MessageHandler handles the inbox and chat windows
type MessageHandler struct{}

func NewMessageHandler() *MessageHandler {
	return &MessageHandler{}
}

// RegisterMessageRoutes registers messaging routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.GET("/conversations", h.GetConversations)
	g.GET("/conversations/:id/messages", h.GetMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
}

// GetConversations returns the inbox, most recently updated first
func (h *MessageHandler) GetConversations(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	if err := scope.Inbox.Load(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, scope.Inbox.Conversations())
}

// GetMessages opens a conversation and returns its messages, oldest first
func (h *MessageHandler) GetMessages(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	w, err := scope.Window(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w.Messages())
}

// SendMessage sends a message. Empty messages are ignored.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	w, err := scope.Window(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	msg, err := w.Send(c.Request().Context(), req.Content)
	if err != nil {
		return httpError(err)
	}
	if msg == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, msg)
}
