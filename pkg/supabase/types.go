// Package supabase is a small client for the hosted backend: PostgREST queries and
// RPCs, GoTrue auth, object storage and realtime change notifications.
package supabase

import (
	"errors"
	"time"
)

// Config holds client configuration.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co
	URL string
	// AnonKey is the public anon key sent as `apikey` on every request.
	AnonKey string
	// Timeout for HTTP requests. Defaults to 30s.
	Timeout time.Duration
	// Observer, when set, is called once per completed HTTP exchange.
	Observer RequestObserver
	// DefaultHeaders are added to every request.
	DefaultHeaders map[string]string
}

// RequestObserver receives the outcome of every request. Status is 0 when the
// request never produced a response.
type RequestObserver func(method, resource string, status int, elapsed time.Duration)

// FilterOperator for query filters.
type FilterOperator string

const (
	OpEq    FilterOperator = "eq"
	OpNeq   FilterOperator = "neq"
	OpGt    FilterOperator = "gt"
	OpGte   FilterOperator = "gte"
	OpLt    FilterOperator = "lt"
	OpLte   FilterOperator = "lte"
	OpLike  FilterOperator = "like"
	OpILike FilterOperator = "ilike"
	OpIs    FilterOperator = "is"
)

// OrderDirection for sorting.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// User is an auth user.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud"`
	Role         string         `json:"role"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// AuthSession is the token bundle returned by the auth endpoints.
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// EventType of a postgres change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// ChangesConfig selects the postgres changes a subscription receives.
type ChangesConfig struct {
	Event  EventType
	Schema string
	Table  string
	// Filter is an optional row filter such as "conversation_id=eq.42".
	Filter string
	// Token, when set, supplies the access token for every join and poll
	// instead of the token carried by the subscribe context.
	Token func() string
}

// accessToken returns the token to present for cfg, falling back to
// fallback when no Token func is set or it returns nothing.
func (c ChangesConfig) accessToken(fallback string) string {
	if c.Token != nil {
		if t := c.Token(); t != "" {
			return t
		}
	}
	return fallback
}

func (c ChangesConfig) withDefaults() ChangesConfig {
	if c.Schema == "" {
		c.Schema = "public"
	}
	if c.Event == "" {
		c.Event = EventAll
	}
	return c
}

// ChangeEvent is a single change notification. Consumers in this module only
// rely on its arrival, never on the payload.
type ChangeEvent struct {
	Type            EventType
	Schema          string
	Table           string
	Record          map[string]any
	OldRecord       map[string]any
	CommitTimestamp string
}

// EventHandler handles change notifications.
type EventHandler func(ChangeEvent)

// Subscription is an active change subscription.
type Subscription interface {
	Unsubscribe() error
}

// Error is an API error returned by any of the services.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
	StatusCode int    `json:"status_code"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

const (
	codeNoRows          = "PGRST116"
	codeUniqueViolation = "23505"
)

// IsNoRows reports whether err is PostgREST's "no rows for single object" error.
func IsNoRows(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == codeNoRows
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && (apiErr.Code == codeUniqueViolation || apiErr.StatusCode == 409)
}

// IsUnauthorized reports whether err was a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}
