package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/labstack/echo/v4"
)

// SettingsHandler handles the theme preference, security logs and support
type SettingsHandler struct {
	prefs *session.Preferences
}

func NewSettingsHandler(prefs *session.Preferences) *SettingsHandler {
	return &SettingsHandler{prefs: prefs}
}

func (h *SettingsHandler) RegisterSettingsRoutes(g *echo.Group) {
	g.GET("/settings/theme", h.GetTheme)
	g.PUT("/settings/theme", h.SetTheme)
	g.GET("/settings/security-logs", h.SecurityLogs)
	g.POST("/settings/support-tickets", h.ContactSupport)
}

func (h *SettingsHandler) GetTheme(c echo.Context) error {
	theme, err := h.prefs.Theme(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"theme": theme})
}

func (h *SettingsHandler) SetTheme(c echo.Context) error {
	var req models.ThemeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.prefs.SetTheme(c.Request().Context(), req.Theme); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"theme": req.Theme})
}

// SecurityLogs lists the ten most recent security events
func (h *SettingsHandler) SecurityLogs(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	logs, err := scope.Services.Settings.SecurityLogs(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *SettingsHandler) ContactSupport(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.SupportTicketRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := scope.Services.Settings.ContactSupport(c.Request().Context(), req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Support ticket opened"})
}
