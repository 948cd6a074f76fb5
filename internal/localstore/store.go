// Package localstore persists device-level state: the status collection and
// the theme preference. Several backends are available; all of them store
// opaque values under a small set of string keys.
package localstore

import (
	"context"
	"errors"
)

const (
	KeyStatuses = "statuses"
	KeyTheme    = "theme"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("local state not found")

// Store is a key/value store for local state.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
