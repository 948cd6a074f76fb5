package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// LikeHandler handles liking and unliking posts
type LikeHandler struct{}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler() *LikeHandler {
	return &LikeHandler{}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.LikePost)
	g.DELETE("/posts/:id/like", h.UnlikePost)
}

// LikePost handles liking a post
func (h *LikeHandler) LikePost(c echo.Context) error {
	return h.toggle(c, true)
}

// UnlikePost handles unliking a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	return h.toggle(c, false)
}

func (h *LikeHandler) toggle(c echo.Context, like bool) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	postID := c.Param("id")

	list, err := scope.ListFor(postID)
	if err != nil {
		return httpError(err)
	}
	if like {
		err = list.Like(c.Request().Context(), postID)
	} else {
		err = list.Unlike(c.Request().Context(), postID)
	}
	if err != nil {
		return httpError(err)
	}

	view, err := list.Post(postID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}
