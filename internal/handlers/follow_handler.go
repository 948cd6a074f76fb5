package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/middleware"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follower edges
type FollowHandler struct{}

func NewFollowHandler() *FollowHandler {
	return &FollowHandler{}
}

// RegisterFollowRoutes registers follow routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.GET("/users/:id/followers", h.GetFollowers)
	g.POST("/users/:id/follow", h.Follow)
	g.DELETE("/users/:id/follow", h.Unfollow)
}

func (h *FollowHandler) GetFollowers(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	followers, err := scope.Services.Follows.Followers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, followers)
}

// Follow makes the caller follow a user. Following twice is not an error.
func (h *FollowHandler) Follow(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	if c.Param("id") == middleware.UserIDFrom(c) {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}
	err = scope.Services.Follows.Follow(c.Request().Context(), c.Param("id"))
	if err != nil && !supabase.IsUniqueViolation(err) {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"following_id": c.Param("id"), "following": true})
}

func (h *FollowHandler) Unfollow(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	if err := scope.Services.Follows.Unfollow(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"following_id": c.Param("id"), "following": false})
}
