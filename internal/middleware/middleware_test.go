package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/onlyme/internal/app"
	"github.com/anonto42/onlyme/internal/app/apptest"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newServer(t *testing.T, limiter *RateLimiter) *echo.Echo {
	t.Helper()
	reg := app.NewRegistry(apptest.NewBackend().Shared(&apptest.Auth{}))
	e := echo.New()
	g := e.Group("/api/v1", ScopeAuthMiddleware(reg))
	if limiter != nil {
		g.Use(limiter.Middleware())
	}
	g.GET("/me", func(c echo.Context) error {
		require.NotNil(t, ScopeFrom(c))
		assert.NotEmpty(t, TokenFrom(c))
		return c.String(http.StatusOK, UserIDFrom(c))
	})
	return e
}

func TestScopeAuthMiddleware(t *testing.T) {
	e := newServer(t, nil)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired token", "Bearer " + apptest.Token("u1", -time.Minute), http.StatusUnauthorized},
		{"valid token", "Bearer " + apptest.Token("u1", time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u1", rec.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	e := newServer(t, NewRateLimiter(0.001, 2))
	alice := "Bearer " + apptest.Token("alice", time.Hour)
	bob := "Bearer " + apptest.Token("bob", time.Hour)

	assert.Equal(t, http.StatusOK, serve(e, alice).Code)
	assert.Equal(t, http.StatusOK, serve(e, alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, alice).Code)
	assert.Equal(t, http.StatusOK, serve(e, bob).Code, "limits are per user")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	for i := 0; i < 10001; i++ {
		rl.getLimiter(time.Duration(i).String())
	}
	rl.Cleanup()
	assert.Empty(t, rl.limiters)
}
