package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

// postColumns is the canonical post projection: author, top-level comments
// with their replies, and likes.
const postColumns = `
	*,
	profile:profiles!posts_user_id_fkey(username),
	comments!comments_post_id_fkey(
		id, post_id, user_id, content, created_at,
		users:profiles!comments_user_id_fkey(username),
		replies:comments!comments_parent_id_fkey(
			id, parent_id, user_id, content, created_at,
			users:profiles!comments_user_id_fkey(username)
		)
	),
	likes(user_id)`

// PostRepository defines the interface for post data operations
type PostRepository interface {
	GetFeed(ctx context.Context) ([]models.Post, error)
	GetPostsByUser(ctx context.Context, userID string) ([]models.Post, error)
	GetPostByID(ctx context.Context, postID string) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	UpdateContent(ctx context.Context, postID, content string) (*models.Post, error)
}

// SupabasePostRepository implements PostRepository over PostgREST
type SupabasePostRepository struct {
	client *supabase.Client
}

// NewSupabasePostRepository creates a new SupabasePostRepository
func NewSupabasePostRepository(client *supabase.Client) *SupabasePostRepository {
	return &SupabasePostRepository{client: client}
}

// GetFeed returns public posts, newest first.
func (r *SupabasePostRepository) GetFeed(ctx context.Context) ([]models.Post, error) {
	resp, err := r.client.From("posts").
		Select(postColumns).
		Eq("privacy", models.PrivacyPublic).
		Order("created_at", supabase.OrderDesc).
		OrderForeign("comments", "created_at", supabase.OrderAsc).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return decodeList[models.Post](resp.Body, "id", "user_id", "likes")
}

// GetPostsByUser returns every post of a user, newest first.
func (r *SupabasePostRepository) GetPostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	resp, err := r.client.From("posts").
		Select(postColumns).
		Eq("user_id", userID).
		Order("created_at", supabase.OrderDesc).
		OrderForeign("comments", "created_at", supabase.OrderAsc).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get posts of user %s: %w", userID, err)
	}
	return decodeList[models.Post](resp.Body, "id", "user_id", "likes")
}

// GetPostByID returns one post or a PGRST116 error when it does not exist.
func (r *SupabasePostRepository) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	resp, err := r.client.From("posts").
		Select(postColumns).
		Eq("id", postID).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	return decodeOne[models.Post](resp.Body, "id", "user_id")
}

// CreatePost inserts a post and returns the stored row with its author.
func (r *SupabasePostRepository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	row := map[string]any{
		"user_id": post.UserID,
		"content": post.Content,
		"privacy": post.Privacy,
	}
	if post.MediaURL != "" {
		row["media_url"] = post.MediaURL
		row["media_type"] = post.MediaType
	}

	resp, err := r.client.From("posts").
		Insert(row).
		Select("*, profile:profiles!posts_user_id_fkey(username)").
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return decodeOne[models.Post](resp.Body, "id", "user_id")
}

// UpdateContent replaces the content of a post and returns the updated row.
func (r *SupabasePostRepository) UpdateContent(ctx context.Context, postID, content string) (*models.Post, error) {
	resp, err := r.client.From("posts").
		Update(map[string]any{"content": content}).
		Eq("id", postID).
		Select("id, user_id, content").
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("update post %s: %w", postID, err)
	}
	return decodeOne[models.Post](resp.Body, "id", "content")
}
