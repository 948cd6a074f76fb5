package models

import "time"

// Like is a row of the likes table; (post_id, user_id) is unique.
type Like struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id" validate:"required"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// LikeRef is the likes(user_id) embed of a post.
type LikeRef struct {
	UserID string `json:"user_id" validate:"required"`
}
