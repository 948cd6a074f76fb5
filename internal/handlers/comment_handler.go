package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comments and replies
type CommentHandler struct{}

func NewCommentHandler() *CommentHandler {
	return &CommentHandler{}
}

// RegisterCommentRoutes registers comment routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.AddComment)
	g.POST("/posts/:id/comments/:comment_id/replies", h.Reply)
}

// AddComment comments on a post. Empty comments are ignored.
func (h *CommentHandler) AddComment(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	list, err := scope.ListFor(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	comment, err := list.AddComment(c.Request().Context(), c.Param("id"), req.Content)
	if err != nil {
		return httpError(err)
	}
	if comment == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, comment)
}

// Reply answers a comment. Empty replies are ignored.
func (h *CommentHandler) Reply(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	list, err := scope.ListFor(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	reply, err := list.Reply(c.Request().Context(), c.Param("id"), c.Param("comment_id"), req.Content)
	if err != nil {
		return httpError(err)
	}
	if reply == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, reply)
}
