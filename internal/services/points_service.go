package services

import (
	"context"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/repositories"
)

type PointsService struct {
	auth   Authorizer
	points repositories.PointsRepository
}

func NewPointsService(auth Authorizer, points repositories.PointsRepository) *PointsService {
	return &PointsService{auth: auth, points: points}
}

func (s *PointsService) GivePoints(ctx context.Context, postID string, amount int64) error {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return err
	}
	return s.points.GivePoints(ctx, postID, amount)
}

func (s *PointsService) AddPoints(ctx context.Context, amount int64) error {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return err
	}
	return s.points.AddPoints(ctx, amount)
}

func (s *PointsService) ConvertPointsToMoney(ctx context.Context, points int64) (*models.ConvertResult, error) {
	ctx, _, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.points.ConvertPointsToMoney(ctx, points)
}

// Balance returns the current user's balance.
func (s *PointsService) Balance(ctx context.Context) (*models.Balance, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.points.GetBalance(ctx, id.UserID)
}

// Transactions returns the current user's transactions, newest first.
func (s *PointsService) Transactions(ctx context.Context) ([]models.Transaction, error) {
	ctx, id, err := s.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.points.GetTransactions(ctx, id.UserID)
}
