package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/onlyme/internal/app"
	"github.com/anonto42/onlyme/internal/feed"
	"github.com/anonto42/onlyme/internal/localstore"
	"github.com/anonto42/onlyme/internal/media"
	"github.com/anonto42/onlyme/internal/middleware"
	"github.com/anonto42/onlyme/internal/repositories"
	"github.com/anonto42/onlyme/internal/services"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/internal/status"
	"github.com/anonto42/onlyme/internal/wallet"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// httpError maps domain and backend errors to HTTP errors.
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, session.ErrUnauthenticated), supabase.IsUnauthorized(err):
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, feed.ErrNotAuthor):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, feed.ErrPostNotFound),
		errors.Is(err, feed.ErrCommentNotFound),
		errors.Is(err, status.ErrStatusNotFound),
		errors.Is(err, localstore.ErrNotFound),
		supabase.IsNoRows(err):
		return echo.NewHTTPError(http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, feed.ErrInsufficientPoints), errors.Is(err, wallet.ErrInsufficientPoints):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, status.ErrInvalidImage),
		errors.Is(err, media.ErrInvalidDataURL),
		errors.Is(err, services.ErrUnsupportedMedia),
		errors.Is(err, services.ErrUploadsDisabled),
		errors.Is(err, session.ErrInvalidTheme),
		errors.Is(err, wallet.ErrConversionRejected):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrUnexpectedShape):
		log.Error().Err(err).Msg("backend response did not match contract")
		return echo.NewHTTPError(http.StatusBadGateway, "Unexpected backend response")
	}

	var apiErr *supabase.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 {
		return echo.NewHTTPError(apiErr.StatusCode, apiErr.Message)
	}

	log.Error().Err(err).Msg("unhandled error")
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, feed.ErrPostNotFound):
		return "Post not found"
	case errors.Is(err, feed.ErrCommentNotFound):
		return "Comment not found"
	case errors.Is(err, status.ErrStatusNotFound):
		return "Status not found"
	}
	return "Not found"
}

func scopeOf(c echo.Context) (*app.Scope, error) {
	scope := middleware.ScopeFrom(c)
	if scope == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return scope, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}
