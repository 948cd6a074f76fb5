package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

const commentColumns = "*, users:profiles!comments_user_id_fkey(username)"

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, postID, userID, content string) (*models.Comment, error)
	CreateReply(ctx context.Context, parentID, userID, content string) (*models.Comment, error)
}

// SupabaseCommentRepository implements CommentRepository over PostgREST
type SupabaseCommentRepository struct {
	client *supabase.Client
}

// NewSupabaseCommentRepository creates a new SupabaseCommentRepository
func NewSupabaseCommentRepository(client *supabase.Client) *SupabaseCommentRepository {
	return &SupabaseCommentRepository{client: client}
}

// CreateComment adds a top-level comment to a post.
func (r *SupabaseCommentRepository) CreateComment(ctx context.Context, postID, userID, content string) (*models.Comment, error) {
	return r.insert(ctx, map[string]any{
		"post_id": postID,
		"user_id": userID,
		"content": content,
	})
}

// CreateReply adds a reply to a comment.
func (r *SupabaseCommentRepository) CreateReply(ctx context.Context, parentID, userID, content string) (*models.Comment, error) {
	return r.insert(ctx, map[string]any{
		"parent_id": parentID,
		"user_id":   userID,
		"content":   content,
	})
}

func (r *SupabaseCommentRepository) insert(ctx context.Context, row map[string]any) (*models.Comment, error) {
	resp, err := r.client.From("comments").
		Insert(row).
		Select(commentColumns).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return decodeOne[models.Comment](resp.Body, "id", "user_id", "content")
}
