package models

import "time"

// Post is a row of the posts table with its embedded author, likes and
// top-level comments.
type Post struct {
	ID        string      `json:"id" validate:"required"`
	UserID    string      `json:"user_id" validate:"required"`
	Content   string      `json:"content"`
	MediaURL  string      `json:"media_url,omitempty"`
	MediaType string      `json:"media_type,omitempty" validate:"omitempty,oneof=image video"`
	Privacy   string      `json:"privacy" validate:"omitempty,oneof=public private"`
	Points    int64       `json:"points"`
	CreatedAt time.Time   `json:"created_at"`
	Profile   *ProfileRef `json:"profile,omitempty"`
	Likes     []LikeRef   `json:"likes"`
	Comments  []Comment   `json:"comments" validate:"dive"`
}

const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)

// IsPrivate reports whether the post media is gated behind an unlock.
func (p *Post) IsPrivate() bool {
	return p.Privacy == PrivacyPrivate
}

// ProfileRef is the embedded author of a post or comment.
type ProfileRef struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// CreatePostRequest defines the request body for creating a new post.
// Media is an optional data URL uploaded before the row is inserted.
type CreatePostRequest struct {
	Content string `json:"content" validate:"max=2000"`
	Media   string `json:"media,omitempty"`
	Privacy string `json:"privacy,omitempty" validate:"omitempty,oneof=public private"`
}

// EditPostRequest defines the request body for editing a post
type EditPostRequest struct {
	Content string `json:"content" validate:"max=2000"`
}

// GivePointsRequest defines the request body for tipping a post
type GivePointsRequest struct {
	Amount int64 `json:"amount"`
}
