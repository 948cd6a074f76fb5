package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/labstack/echo/v4"
)

// PostHandler handles creating, editing, unlocking and tipping posts
type PostHandler struct{}

func NewPostHandler() *PostHandler {
	return &PostHandler{}
}

// RegisterPostRoutes registers post routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.PATCH("/posts/:id", h.EditPost)
	g.POST("/posts/:id/unlock", h.UnlockPost)
	g.POST("/posts/:id/points", h.GivePoints)
}

// CreatePost publishes a post with optional media
func (h *PostHandler) CreatePost(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := scope.Feed.CreatePost(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	if post == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, post)
}

// EditPost replaces the content of the caller's own post
func (h *PostHandler) EditPost(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.EditPostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	list, err := scope.ListFor(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	view, err := list.EditPost(c.Request().Context(), c.Param("id"), req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// UnlockPost spends points to reveal a private post for this session
func (h *PostHandler) UnlockPost(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	postID := c.Param("id")

	list, err := scope.ListFor(postID)
	if err != nil {
		return httpError(err)
	}
	if err := list.UnlockPost(c.Request().Context(), postID); err != nil {
		return httpError(err)
	}
	view, err := list.Post(postID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"post":   view,
		"points": scope.Wallet.Balance().Points,
	})
}

// GivePoints gifts points to a post
func (h *PostHandler) GivePoints(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.GivePointsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	balance, err := scope.Wallet.GivePoints(c.Request().Context(), c.Param("id"), req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, balance)
}
