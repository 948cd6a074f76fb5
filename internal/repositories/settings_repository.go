package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

// SettingsRepository covers the account screens: security log and support.
type SettingsRepository interface {
	GetSecurityLogs(ctx context.Context, userID string, limit int) ([]models.SecurityLog, error)
	CreateSupportTicket(ctx context.Context, ticket *models.SupportTicket) error
}

// SupabaseSettingsRepository implements SettingsRepository over PostgREST
type SupabaseSettingsRepository struct {
	client *supabase.Client
}

// NewSupabaseSettingsRepository creates a new SupabaseSettingsRepository
func NewSupabaseSettingsRepository(client *supabase.Client) *SupabaseSettingsRepository {
	return &SupabaseSettingsRepository{client: client}
}

func (r *SupabaseSettingsRepository) GetSecurityLogs(ctx context.Context, userID string, limit int) ([]models.SecurityLog, error) {
	resp, err := r.client.From("security_logs").
		Select("*").
		Eq("user_id", userID).
		Order("created_at", supabase.OrderDesc).
		Limit(limit).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get security logs: %w", err)
	}
	return decodeList[models.SecurityLog](resp.Body, "id", "event")
}

// CreateSupportTicket opens a ticket; new tickets are always "open".
func (r *SupabaseSettingsRepository) CreateSupportTicket(ctx context.Context, ticket *models.SupportTicket) error {
	_, err := r.client.From("support_tickets").
		Insert(map[string]any{
			"user_id": ticket.UserID,
			"subject": ticket.Subject,
			"message": ticket.Message,
			"status":  "open",
		}).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("create support ticket: %w", err)
	}
	return nil
}
