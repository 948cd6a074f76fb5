package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/onlyme/internal/media"
	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/repositories"
)

var (
	ErrUploadsDisabled  = errors.New("media uploads are not configured")
	ErrUnsupportedMedia = errors.New("media must be an image or a video")
)

// PostService handles posts, likes and comments.
type PostService struct {
	auth     Authorizer
	posts    repositories.PostRepository
	likes    repositories.LikeRepository
	comments repositories.CommentRepository
	uploader media.Uploader
}

func NewPostService(auth Authorizer, posts repositories.PostRepository, likes repositories.LikeRepository, comments repositories.CommentRepository, uploader media.Uploader) *PostService {
	return &PostService{auth: auth, posts: posts, likes: likes, comments: comments, uploader: uploader}
}

// Feed returns public posts, newest first.
func (s *PostService) Feed(ctx context.Context) ([]models.Post, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.posts.GetFeed(ctx)
}

// UserPosts returns all posts of userID, newest first.
func (s *PostService) UserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.posts.GetPostsByUser(ctx, userID)
}

// CreatePost uploads the optional media data URL to the post-images bucket
// and inserts the post.
func (s *PostService) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:  id.UserID,
		Content: req.Content,
		Privacy: req.Privacy,
	}
	if post.Privacy == "" {
		post.Privacy = models.PrivacyPublic
	}

	if req.Media != "" {
		if s.uploader == nil {
			return nil, ErrUploadsDisabled
		}
		contentType, data, err := media.ParseDataURL(req.Media)
		if err != nil {
			return nil, err
		}
		kind, ok := media.MediaType(contentType)
		if !ok {
			return nil, ErrUnsupportedMedia
		}
		url, err := s.uploader.Upload(ctx, media.BucketPostImages, media.ObjectName(id.UserID, contentType), data, contentType)
		if err != nil {
			return nil, fmt.Errorf("upload post media: %w", err)
		}
		post.MediaURL = url
		post.MediaType = kind
	}

	return s.posts.CreatePost(ctx, post)
}

// GetPost returns a single post.
func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.posts.GetPostByID(ctx, postID)
}

// EditPost replaces the content of a post.
func (s *PostService) EditPost(ctx context.Context, postID, content string) (*models.Post, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.posts.UpdateContent(ctx, postID, content)
}

// Like records a like by the current user.
func (s *PostService) Like(ctx context.Context, postID string) (*models.Like, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.likes.CreateLike(ctx, postID, id.UserID)
}

// Unlike removes the current user's like.
func (s *PostService) Unlike(ctx context.Context, postID string) error {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return err
	}
	return s.likes.DeleteLike(ctx, postID, id.UserID)
}

// Likes returns the authoritative likes of a post.
func (s *PostService) Likes(ctx context.Context, postID string) ([]models.LikeRef, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.likes.GetLikesByPostID(ctx, postID)
}

func (s *PostService) AddComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.comments.CreateComment(ctx, postID, id.UserID, content)
}

func (s *PostService) Reply(ctx context.Context, commentID, content string) (*models.Comment, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.comments.CreateReply(ctx, commentID, id.UserID, content)
}
