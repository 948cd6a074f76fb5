package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
)

// PointsRepository defines the ledger operations. Balances are only changed
// by the backend functions.
type PointsRepository interface {
	GivePoints(ctx context.Context, postID string, amount int64) error
	AddPoints(ctx context.Context, amount int64) error
	ConvertPointsToMoney(ctx context.Context, points int64) (*models.ConvertResult, error)
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
	GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// SupabasePointsRepository implements PointsRepository with PostgREST RPCs
type SupabasePointsRepository struct {
	client *supabase.Client
}

// NewSupabasePointsRepository creates a new SupabasePointsRepository
func NewSupabasePointsRepository(client *supabase.Client) *SupabasePointsRepository {
	return &SupabasePointsRepository{client: client}
}

// GivePoints transfers amount points from the caller to the author of postID.
func (r *SupabasePointsRepository) GivePoints(ctx context.Context, postID string, amount int64) error {
	_, err := r.client.RPC(ctx, "give_points", map[string]any{
		"post_id": postID,
		"amount":  amount,
	})
	if err != nil {
		return fmt.Errorf("give_points: %w", err)
	}
	return nil
}

// AddPoints credits the caller with purchased points.
func (r *SupabasePointsRepository) AddPoints(ctx context.Context, amount int64) error {
	_, err := r.client.RPC(ctx, "add_points", map[string]any{"amount": amount})
	if err != nil {
		return fmt.Errorf("add_points: %w", err)
	}
	return nil
}

// ConvertPointsToMoney asks the backend to convert points at its own rate.
func (r *SupabasePointsRepository) ConvertPointsToMoney(ctx context.Context, points int64) (*models.ConvertResult, error) {
	resp, err := r.client.RPC(ctx, "convert_points_to_money", map[string]any{
		"points_to_convert": points,
	})
	if err != nil {
		return nil, fmt.Errorf("convert_points_to_money: %w", err)
	}
	return decodeOne[models.ConvertResult](resp.Body, "success")
}

// GetBalance returns the balance of userID. A user without a balance row has
// zero points and zero money.
func (r *SupabasePointsRepository) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	resp, err := r.client.From("points_balance").
		Select("points, money").
		Eq("user_id", userID).
		Single().
		Execute(ctx)
	if err != nil {
		if supabase.IsNoRows(err) {
			return &models.Balance{}, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return decodeOne[models.Balance](resp.Body, "points")
}

// GetTransactions returns the transactions of userID, newest first.
func (r *SupabasePointsRepository) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	resp, err := r.client.From("transactions").
		Select("*").
		Eq("user_id", userID).
		Order("created_at", supabase.OrderDesc).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	return decodeList[models.Transaction](resp.Body, "id", "amount", "status")
}
