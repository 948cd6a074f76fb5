package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/labstack/echo/v4"
)

// UserHandler handles profiles, user posts, search and private access
type UserHandler struct{}

// NewUserHandler creates a new UserHandler
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// RegisterProfileRoutes registers profile and user routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id/posts", h.GetUserPosts)
	g.GET("/users/:id/private-access", h.GetPrivateAccess)
	g.POST("/users/:id/private-access", h.SubscribePrivate)
}

// GetProfile returns the caller's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	profile, err := scope.Services.Profiles.Me(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile sets the caller's username and bio
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	profile, err := scope.Services.Profiles.Update(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// SearchUsers finds users whose username contains q
func (h *UserHandler) SearchUsers(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	profiles, err := scope.Services.Profiles.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

// GetUserPosts returns every post of a user
func (h *UserHandler) GetUserPosts(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	list, err := scope.UserPosts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list.Posts())
}

// GetPrivateAccess reports whether the caller may see a creator's private posts
func (h *UserHandler) GetPrivateAccess(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	ok, err := scope.Services.Profiles.HasPrivateAccess(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"creator_id": c.Param("id"), "has_access": ok})
}

// SubscribePrivate grants the caller a month of access to a creator's private posts
func (h *UserHandler) SubscribePrivate(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	access, err := scope.Services.Profiles.SubscribePrivate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, access)
}
