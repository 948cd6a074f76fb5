package models

import "time"

// Comment is a comment on a post, or a reply to a comment when ParentID is
// set. Replies are one level deep.
type Comment struct {
	ID        string      `json:"id" validate:"required"`
	PostID    string      `json:"post_id,omitempty"`
	ParentID  string      `json:"parent_id,omitempty"`
	UserID    string      `json:"user_id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Users     *ProfileRef `json:"users,omitempty"`
	Replies   []Comment   `json:"replies,omitempty" validate:"dive"`
}

// Author returns the username of the comment author, if embedded.
func (c *Comment) Author() string {
	if c.Users == nil {
		return ""
	}
	return c.Users.Username
}

// CreateCommentRequest defines the request body for a comment or a reply
type CreateCommentRequest struct {
	Content string `json:"content" validate:"max=500"`
}
