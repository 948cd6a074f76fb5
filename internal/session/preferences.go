package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/onlyme/internal/localstore"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

var ErrInvalidTheme = errors.New("theme must be dark or light")

// Preferences are device-level settings kept in the local store.
type Preferences struct {
	store localstore.Store
}

func NewPreferences(store localstore.Store) *Preferences {
	return &Preferences{store: store}
}

// Theme returns the stored theme, light when unset or unrecognized.
func (p *Preferences) Theme(ctx context.Context) (string, error) {
	v, err := p.store.Get(ctx, localstore.KeyTheme)
	if errors.Is(err, localstore.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	if string(v) == ThemeDark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	if err := p.store.Set(ctx, localstore.KeyTheme, []byte(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
