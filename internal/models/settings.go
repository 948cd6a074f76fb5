package models

import "time"

// PrivateAccess grants a subscriber access to a creator's private posts until
// ExpiresAt.
type PrivateAccess struct {
	CreatorID    string    `json:"creator_id" validate:"required"`
	SubscriberID string    `json:"subscriber_id" validate:"required"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SecurityLog is a row of the security_logs table
type SecurityLog struct {
	ID        string    `json:"id" validate:"required"`
	UserID    string    `json:"user_id"`
	Event     string    `json:"event"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportTicket is a row of the support_tickets table
type SupportTicket struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type SupportTicketRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=4000"`
}

type ThemeRequest struct {
	Theme string `json:"theme" validate:"required"`
}
