package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/anonto42/onlyme/internal/app"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	scopeKey = "scope"
	tokenKey = "access_token"
	userKey  = "user_id"
)

// ScopeResolver maps an access token to its scope. *app.Registry
// implements it.
type ScopeResolver interface {
	Resolve(ctx context.Context, token string) (*app.Scope, error)
}

// ScopeAuthMiddleware requires a bearer access token and loads the scope of
// its user into the context.
func ScopeAuthMiddleware(resolver ScopeResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c)
			if err != nil {
				return err
			}

			scope, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Path()).Msg("rejected access token")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			id, err := scope.Session.Current()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(scopeKey, scope)
			c.Set(tokenKey, token)
			c.Set(userKey, id.UserID)
			return next(c)
		}
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header.
func BearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}

// ScopeFrom returns the scope stored by ScopeAuthMiddleware.
func ScopeFrom(c echo.Context) *app.Scope {
	scope, _ := c.Get(scopeKey).(*app.Scope)
	return scope
}

// TokenFrom returns the access token stored by ScopeAuthMiddleware.
func TokenFrom(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}

// UserIDFrom returns the user id stored by ScopeAuthMiddleware, empty for
// anonymous requests.
func UserIDFrom(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}
