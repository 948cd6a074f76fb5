package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, postID, userID string) (*models.Like, error)
	DeleteLike(ctx context.Context, postID, userID string) error
	GetLikesByPostID(ctx context.Context, postID string) ([]models.LikeRef, error)
}

// SupabaseLikeRepository implements LikeRepository over PostgREST
type SupabaseLikeRepository struct {
	client *supabase.Client
}

// NewSupabaseLikeRepository creates a new SupabaseLikeRepository
func NewSupabaseLikeRepository(client *supabase.Client) *SupabaseLikeRepository {
	return &SupabaseLikeRepository{client: client}
}

// CreateLike inserts a like. A second like by the same user fails with a
// unique violation.
func (r *SupabaseLikeRepository) CreateLike(ctx context.Context, postID, userID string) (*models.Like, error) {
	resp, err := r.client.From("likes").
		Insert(map[string]any{"post_id": postID, "user_id": userID}).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("like post %s: %w", postID, err)
	}
	return decodeOne[models.Like](resp.Body, "post_id", "user_id")
}

// DeleteLike removes the like of userID on postID. Removing a like that does
// not exist is not an error.
func (r *SupabaseLikeRepository) DeleteLike(ctx context.Context, postID, userID string) error {
	_, err := r.client.From("likes").
		Delete().
		Eq("post_id", postID).
		Eq("user_id", userID).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("unlike post %s: %w", postID, err)
	}
	return nil
}

// GetLikesByPostID returns the authoritative likes of a post.
func (r *SupabaseLikeRepository) GetLikesByPostID(ctx context.Context, postID string) ([]models.LikeRef, error) {
	resp, err := r.client.From("likes").
		Select("user_id").
		Eq("post_id", postID).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get likes of post %s: %w", postID, err)
	}
	return decodeList[models.LikeRef](resp.Body, "user_id")
}
