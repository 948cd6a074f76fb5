package services

import (
	"context"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/repositories"
)

const notificationPageSize = 50

type NotificationService struct {
	auth          Authorizer
	notifications repositories.NotificationRepository
}

func NewNotificationService(auth Authorizer, notifications repositories.NotificationRepository) *NotificationService {
	return &NotificationService{auth: auth, notifications: notifications}
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return 0, err
	}
	return s.notifications.CountUnread(ctx, id.UserID)
}

func (s *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.notifications.GetNotifications(ctx, id.UserID, notificationPageSize)
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) error {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return err
	}
	return s.notifications.MarkAsRead(ctx, id.UserID, notificationID)
}
