package services

import (
	"context"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/repositories"
)

type FollowService struct {
	auth    Authorizer
	follows repositories.FollowRepository
}

func NewFollowService(auth Authorizer, follows repositories.FollowRepository) *FollowService {
	return &FollowService{auth: auth, follows: follows}
}

func (s *FollowService) Followers(ctx context.Context, userID string) ([]models.Follower, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.follows.GetFollowers(ctx, userID)
}

// Follow makes the current user follow userID.
func (s *FollowService) Follow(ctx context.Context, userID string) error {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return err
	}
	return s.follows.Follow(ctx, id.UserID, userID)
}

func (s *FollowService) Unfollow(ctx context.Context, userID string) error {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return err
	}
	return s.follows.Unfollow(ctx, id.UserID, userID)
}
