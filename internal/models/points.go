package models

import "time"

// Balance is the points_balance row of a user. Only backend RPCs change it.
type Balance struct {
	Points int64   `json:"points" validate:"gte=0"`
	Money  float64 `json:"money" validate:"gte=0"`
}

// Transaction is a row of the transactions table
type Transaction struct {
	ID        string    `json:"id" validate:"required"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

const TransactionCompleted = "completed"

// ConvertResult is the result of convert_points_to_money.
type ConvertResult struct {
	Success     bool    `json:"success"`
	MoneyAmount float64 `json:"money_amount" validate:"gte=0"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount"`
}

type ConvertRequest struct {
	Points int64 `json:"points"`
}
