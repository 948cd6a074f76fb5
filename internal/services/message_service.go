package services

import (
	"context"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/repositories"
)

type MessageService struct {
	auth     Authorizer
	messages repositories.MessageRepository
}

func NewMessageService(auth Authorizer, messages repositories.MessageRepository) *MessageService {
	return &MessageService{auth: auth, messages: messages}
}

// Conversations returns the current user's inbox.
func (s *MessageService) Conversations(ctx context.Context) ([]models.Conversation, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.messages.GetConversations(ctx, id.UserID)
}

func (s *MessageService) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.messages.GetMessages(ctx, conversationID)
}

func (s *MessageService) Send(ctx context.Context, conversationID, content string) (*models.Message, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.messages.SendMessage(ctx, conversationID, id.UserID, content)
}
