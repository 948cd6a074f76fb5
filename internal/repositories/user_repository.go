package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

// UserRepository defines the interface for profiles and private access
type UserRepository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	SearchProfiles(ctx context.Context, query string) ([]models.Profile, error)
	HasPrivateAccess(ctx context.Context, creatorID, subscriberID string, now time.Time) (bool, error)
	GrantPrivateAccess(ctx context.Context, access *models.PrivateAccess) error
}

// SupabaseUserRepository implements UserRepository over PostgREST
type SupabaseUserRepository struct {
	client *supabase.Client
}

// NewSupabaseUserRepository creates a new SupabaseUserRepository
func NewSupabaseUserRepository(client *supabase.Client) *SupabaseUserRepository {
	return &SupabaseUserRepository{client: client}
}

func (r *SupabaseUserRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	resp, err := r.client.From("profiles").
		Select("id, username, bio, avatar_url, created_at").
		Eq("id", userID).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return decodeOne[models.Profile](resp.Body, "id", "username")
}

func (r *SupabaseUserRepository) UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	resp, err := r.client.From("profiles").
		Upsert(map[string]any{
			"id":       profile.ID,
			"username": profile.Username,
			"bio":      profile.Bio,
		}, "id").
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", profile.ID, err)
	}
	return decodeOne[models.Profile](resp.Body, "id", "username")
}

// SearchProfiles matches usernames case-insensitively.
func (r *SupabaseUserRepository) SearchProfiles(ctx context.Context, query string) ([]models.Profile, error) {
	resp, err := r.client.From("profiles").
		Select("id, username, avatar_url").
		ILike("username", "*"+query+"*").
		Order("username").
		Limit(20).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return decodeList[models.Profile](resp.Body, "id", "username")
}

// HasPrivateAccess reports whether subscriberID holds an unexpired
// subscription to creatorID.
func (r *SupabaseUserRepository) HasPrivateAccess(ctx context.Context, creatorID, subscriberID string, now time.Time) (bool, error) {
	resp, err := r.client.From("private_access").
		Select("creator_id, subscriber_id, expires_at").
		Eq("creator_id", creatorID).
		Eq("subscriber_id", subscriberID).
		Gte("expires_at", now.UTC().Format(time.RFC3339)).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return false, fmt.Errorf("check private access: %w", err)
	}
	rows, err := decodeList[models.PrivateAccess](resp.Body, "creator_id")
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (r *SupabaseUserRepository) GrantPrivateAccess(ctx context.Context, access *models.PrivateAccess) error {
	_, err := r.client.From("private_access").
		Insert(map[string]any{
			"creator_id":    access.CreatorID,
			"subscriber_id": access.SubscriberID,
			"expires_at":    access.ExpiresAt.UTC().Format(time.RFC3339),
		}).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("grant private access: %w", err)
	}
	return nil
}
