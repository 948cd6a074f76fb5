package services

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/repositories"
)

type ProfileService struct {
	auth  Authorizer
	users repositories.UserRepository
	now   func() time.Time
}

func NewProfileService(auth Authorizer, users repositories.UserRepository) *ProfileService {
	return &ProfileService{auth: auth, users: users, now: time.Now}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.GetProfile(ctx, userID)
}

// Me returns the current user's profile.
func (s *ProfileService) Me(ctx context.Context) (*models.Profile, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.GetProfile(ctx, id.UserID)
}

// Update upserts the current user's username and bio.
func (s *ProfileService) Update(ctx context.Context, req models.UpdateProfileRequest) (*models.Profile, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.UpsertProfile(ctx, &models.Profile{
		ID:       id.UserID,
		Username: strings.TrimSpace(req.Username),
		Bio:      req.Bio,
	})
}

// Search returns profiles whose username contains query. An empty query
// returns nothing without calling the backend.
func (s *ProfileService) Search(ctx context.Context, query string) ([]models.Profile, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Profile{}, nil
	}
	return s.users.SearchProfiles(ctx, query)
}

// HasPrivateAccess reports whether the current user may see creatorID's
// private posts.
func (s *ProfileService) HasPrivateAccess(ctx context.Context, creatorID string) (bool, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return false, err
	}
	if creatorID == id.UserID {
		return true, nil
	}
	return s.users.HasPrivateAccess(ctx, creatorID, id.UserID, s.now())
}

// SubscribePrivate grants the current user one month of access to
// creatorID's private posts.
func (s *ProfileService) SubscribePrivate(ctx context.Context, creatorID string) (*models.PrivateAccess, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	access := &models.PrivateAccess{
		CreatorID:    creatorID,
		SubscriberID: id.UserID,
		ExpiresAt:    s.now().AddDate(0, 1, 0),
	}
	if err := s.users.GrantPrivateAccess(ctx, access); err != nil {
		return nil, err
	}
	return access, nil
}
