package models

import "time"

// Conversation is an inbox preview: the participants and the most recent
// message, if any.
type Conversation struct {
	ID           string    `json:"id" validate:"required"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Participants []Profile `json:"participants" validate:"dive"`
	LastMessage  *Message  `json:"last_message,omitempty"`
}

// Message is a row of the messages table
type Message struct {
	ID             string      `json:"id" validate:"required"`
	ConversationID string      `json:"conversation_id" validate:"required"`
	SenderID       string      `json:"sender_id" validate:"required"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
	Sender         *ProfileRef `json:"sender,omitempty"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"max=4000"`
}
