package models

import "time"

// Notification is a row of the notifications table
type Notification struct {
	ID        string    `json:"id" validate:"required"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
