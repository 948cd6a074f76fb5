// Package notifications tracks the unread notification count of the
// signed-in user.
package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/realtime"
	"github.com/anonto42/onlyme/pkg/supabase"
)

type Gateway interface {
	UnreadCount(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
}

// Bell caches the unread count and refreshes it on change notifications.
type Bell struct {
	gw Gateway

	mu     sync.RWMutex
	unread int64
}

func NewBell(gw Gateway) *Bell {
	return &Bell{gw: gw}
}

func (b *Bell) Load(ctx context.Context) error {
	n, err := b.gw.UnreadCount(ctx)
	if err != nil {
		return fmt.Errorf("count unread notifications: %w", err)
	}
	b.mu.Lock()
	b.unread = n
	b.mu.Unlock()
	return nil
}

func (b *Bell) Unread() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.unread
}

func (b *Bell) List(ctx context.Context) ([]models.Notification, error) {
	return b.gw.List(ctx)
}

// MarkRead marks one notification read and refreshes the count.
func (b *Bell) MarkRead(ctx context.Context, notificationID string) error {
	if err := b.gw.MarkRead(ctx, notificationID); err != nil {
		return err
	}
	return b.Load(ctx)
}

// Watch refreshes the count on any change to userID's notifications.
func (b *Bell) Watch(ctx context.Context, src realtime.Source, userID string) (supabase.Subscription, error) {
	cfg := supabase.ChangesConfig{
		Table:  "notifications",
		Filter: "user_id=eq." + userID,
	}
	return realtime.Watch(ctx, src, cfg, "notifications", b.Load)
}
