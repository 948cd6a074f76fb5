package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// FeedHandler serves the public feed
type FeedHandler struct{}

func NewFeedHandler() *FeedHandler {
	return &FeedHandler{}
}

// RegisterFeedRoutes registers feed routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.POST("/feed/reload", h.ReloadFeed)
}

// GetFeed returns the feed as last loaded. Change notifications keep it
// current.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scope.Feed.Posts())
}

// ReloadFeed reloads the feed from the backend
func (h *FeedHandler) ReloadFeed(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	if err := scope.Feed.Load(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, scope.Feed.Posts())
}
