package models

import "time"

// Follower is a follower edge; (follower_id, following_id) is unique.
type Follower struct {
	FollowerID  string      `json:"follower_id" validate:"required"`
	FollowingID string      `json:"following_id" validate:"required"`
	CreatedAt   time.Time   `json:"created_at"`
	Follower    *ProfileRef `json:"follower,omitempty"`
}
