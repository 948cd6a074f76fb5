// Package wallet keeps the last server-confirmed points and money balances
// of the signed-in user. Balances change only through remote procedures;
// the one local adjustment is Deduct, used by the post unlock flow.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anonto42/onlyme/internal/metrics"
	"github.com/anonto42/onlyme/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// ConversionPoints points convert to ConversionMoney currency units.
	ConversionPoints = 1000
	ConversionMoney  = 900
)

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrConversionRejected = errors.New("conversion rejected")
)

var packages = []int64{1000, 5000, 10000, 50000}

// Gateway is the points API of the signed-in user.
type Gateway interface {
	GivePoints(ctx context.Context, postID string, amount int64) error
	AddPoints(ctx context.Context, amount int64) error
	ConvertPointsToMoney(ctx context.Context, points int64) (*models.ConvertResult, error)
	Balance(ctx context.Context) (*models.Balance, error)
	Transactions(ctx context.Context) ([]models.Transaction, error)
}

// Earnings is the transaction history with the total of completed amounts.
type Earnings struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        float64              `json:"total"`
}

type Ledger struct {
	gw Gateway

	mu      sync.RWMutex
	balance models.Balance
	loaded  bool
}

func NewLedger(gw Gateway) *Ledger {
	return &Ledger{gw: gw}
}

// Packages lists the top-up packages on offer.
func Packages() []int64 {
	out := make([]int64, len(packages))
	copy(out, packages)
	return out
}

// Quote returns the money received for points at the fixed rate.
func Quote(points int64) float64 {
	return float64(points) * ConversionMoney / ConversionPoints
}

// Balance returns the last known balance.
func (l *Ledger) Balance() models.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// Refresh fetches the authoritative balance.
func (l *Ledger) Refresh(ctx context.Context) (models.Balance, error) {
	b, err := l.gw.Balance(ctx)
	if err != nil {
		return l.Balance(), fmt.Errorf("fetch balance: %w", err)
	}

	l.mu.Lock()
	l.balance = *b
	l.loaded = true
	l.mu.Unlock()
	return *b, nil
}

// GivePoints gifts amount points to a post. Non-positive amounts are ignored.
func (l *Ledger) GivePoints(ctx context.Context, postID string, amount int64) (models.Balance, error) {
	if amount <= 0 || postID == "" {
		return l.Balance(), nil
	}
	err := l.gw.GivePoints(ctx, postID, amount)
	metrics.RecordLedgerOperation("give_points", err)
	if err != nil {
		log.Error().Err(err).Str("post_id", postID).Int64("amount", amount).Msg("failed to give points")
		return l.Balance(), fmt.Errorf("give points: %w", err)
	}
	return l.Refresh(ctx)
}

// TopUp adds amount points, then re-fetches the balance instead of adding
// locally.
func (l *Ledger) TopUp(ctx context.Context, amount int64) (models.Balance, error) {
	if amount <= 0 {
		return l.Balance(), nil
	}
	err := l.gw.AddPoints(ctx, amount)
	metrics.RecordLedgerOperation("add_points", err)
	if err != nil {
		log.Error().Err(err).Int64("amount", amount).Msg("failed to top up points")
		return l.Balance(), fmt.Errorf("top up: %w", err)
	}
	return l.Refresh(ctx)
}

// ConvertPointsToMoney converts points at the fixed rate and returns the
// money amount reported by the server. Converting more than the known
// balance is rejected without a remote call.
func (l *Ledger) ConvertPointsToMoney(ctx context.Context, points int64) (float64, error) {
	if points <= 0 {
		return 0, nil
	}

	l.mu.RLock()
	loaded := l.loaded
	l.mu.RUnlock()
	if !loaded {
		if _, err := l.Refresh(ctx); err != nil {
			return 0, err
		}
	}
	if points > l.Balance().Points {
		return 0, ErrInsufficientPoints
	}

	res, err := l.gw.ConvertPointsToMoney(ctx, points)
	if err == nil && !res.Success {
		err = ErrConversionRejected
	}
	metrics.RecordLedgerOperation("convert_points_to_money", err)
	if err != nil {
		log.Error().Err(err).Int64("points", points).Msg("failed to convert points")
		return 0, fmt.Errorf("convert points: %w", err)
	}

	if _, err := l.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("balance refresh after conversion failed")
	}
	return res.MoneyAmount, nil
}

// Transfer calls give_points without refreshing the balance.
func (l *Ledger) Transfer(ctx context.Context, postID string, amount int64) error {
	err := l.gw.GivePoints(ctx, postID, amount)
	metrics.RecordLedgerOperation("transfer", err)
	if err != nil {
		return fmt.Errorf("transfer points: %w", err)
	}
	return nil
}

// Deduct lowers the local points balance after a confirmed Transfer.
func (l *Ledger) Deduct(amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance.Points -= amount
	if l.balance.Points < 0 {
		l.balance.Points = 0
	}
}

// Earnings returns the user's transactions, newest first.
func (l *Ledger) Earnings(ctx context.Context) (*Earnings, error) {
	txs, err := l.gw.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	e := &Earnings{Transactions: txs}
	for _, tx := range txs {
		if tx.Status == models.TransactionCompleted {
			e.Total += tx.Amount
		}
	}
	return e, nil
}
