package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	CountUnread(ctx context.Context, userID string) (int64, error)
	GetNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
}

// SupabaseNotificationRepository implements NotificationRepository over PostgREST
type SupabaseNotificationRepository struct {
	client *supabase.Client
}

// NewSupabaseNotificationRepository creates a new SupabaseNotificationRepository
func NewSupabaseNotificationRepository(client *supabase.Client) *SupabaseNotificationRepository {
	return &SupabaseNotificationRepository{client: client}
}

// CountUnread asks for an exact count without transferring rows.
func (r *SupabaseNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	resp, err := r.client.From("notifications").
		Select("*").
		Eq("user_id", userID).
		Eq("read", false).
		Count("exact").
		Head().
		Execute(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	n, ok := resp.Count()
	if !ok {
		return 0, fmt.Errorf("%w: no count in Content-Range", ErrUnexpectedShape)
	}
	return n, nil
}

func (r *SupabaseNotificationRepository) GetNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	resp, err := r.client.From("notifications").
		Select("*").
		Eq("user_id", userID).
		Order("created_at", supabase.OrderDesc).
		Limit(limit).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}
	return decodeList[models.Notification](resp.Body, "id", "read")
}

func (r *SupabaseNotificationRepository) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	_, err := r.client.From("notifications").
		Update(map[string]any{"read": true}).
		Eq("id", notificationID).
		Eq("user_id", userID).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	return nil
}
