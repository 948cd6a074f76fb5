package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

// FollowRepository defines the interface for follower edges
type FollowRepository interface {
	GetFollowers(ctx context.Context, userID string) ([]models.Follower, error)
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
}

// SupabaseFollowRepository implements FollowRepository over PostgREST
type SupabaseFollowRepository struct {
	client *supabase.Client
}

// NewSupabaseFollowRepository creates a new SupabaseFollowRepository
func NewSupabaseFollowRepository(client *supabase.Client) *SupabaseFollowRepository {
	return &SupabaseFollowRepository{client: client}
}

// GetFollowers returns the users following userID.
func (r *SupabaseFollowRepository) GetFollowers(ctx context.Context, userID string) ([]models.Follower, error) {
	resp, err := r.client.From("followers").
		Select("*, follower:profiles!followers_follower_id_fkey(id, username)").
		Eq("following_id", userID).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get followers of %s: %w", userID, err)
	}
	return decodeList[models.Follower](resp.Body, "follower_id", "following_id")
}

func (r *SupabaseFollowRepository) Follow(ctx context.Context, followerID, followingID string) error {
	_, err := r.client.From("followers").
		Insert(map[string]any{"follower_id": followerID, "following_id": followingID}).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("follow %s: %w", followingID, err)
	}
	return nil
}

func (r *SupabaseFollowRepository) Unfollow(ctx context.Context, followerID, followingID string) error {
	_, err := r.client.From("followers").
		Delete().
		Eq("follower_id", followerID).
		Eq("following_id", followingID).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("unfollow %s: %w", followingID, err)
	}
	return nil
}
