package services

import (
	"context"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/repositories"
)

const securityLogLimit = 10

type SettingsService struct {
	auth     Authorizer
	settings repositories.SettingsRepository
}

func NewSettingsService(auth Authorizer, settings repositories.SettingsRepository) *SettingsService {
	return &SettingsService{auth: auth, settings: settings}
}

// SecurityLogs returns the ten most recent security events.
func (s *SettingsService) SecurityLogs(ctx context.Context) ([]models.SecurityLog, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.settings.GetSecurityLogs(ctx, id.UserID, securityLogLimit)
}

func (s *SettingsService) ContactSupport(ctx context.Context, req models.SupportTicketRequest) error {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return err
	}
	return s.settings.CreateSupportTicket(ctx, &models.SupportTicket{
		UserID:  id.UserID,
		Subject: req.Subject,
		Message: req.Message,
		Status:  "open",
	})
}
