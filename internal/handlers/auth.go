package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/app"
	"github.com/anonto42/onlyme/internal/middleware"
	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles sign up, login and logout
type AuthHandler struct {
	registry *app.Registry
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(registry *app.Registry) *AuthHandler {
	return &AuthHandler{registry: registry}
}

// RegisterAuthRoutes registers the unauthenticated auth routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
}

// RegisterMeRoutes registers the routes describing the signed-in user
func (h *AuthHandler) RegisterMeRoutes(g *echo.Group) {
	g.GET("/me", h.Me)
}

type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	User        session.Identity `json:"user"`
}

// Signup registers an account with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, scope, err := h.registry.SignUp(c.Request().Context(), req)
	if err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("sign up failed")
		return httpError(err)
	}
	if scope == nil {
		return c.JSON(http.StatusAccepted, echo.Map{"message": "Check your email to confirm your account"})
	}

	id, _ := scope.Session.Current()
	return c.JSON(http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer", User: id})
}

// Login signs in with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, scope, err := h.registry.Login(c.Request().Context(), req)
	if err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("login failed")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	id, _ := scope.Session.Current()
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", User: id})
}

// Logout revokes the token and tears down its scope
func (h *AuthHandler) Logout(c echo.Context) error {
	token, err := middleware.BearerToken(c)
	if err != nil {
		return err
	}
	if err := h.registry.Logout(c.Request().Context(), token); err != nil {
		log.Warn().Err(err).Msg("token revocation failed; local session cleared")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in identity and profile
func (h *AuthHandler) Me(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := scope.Session.Current()
	if err != nil {
		return httpError(err)
	}

	resp := echo.Map{"user": id}
	profile, err := scope.Services.Profiles.Me(c.Request().Context())
	switch {
	case err == nil:
		resp["profile"] = profile
	case !supabase.IsNoRows(err):
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}
