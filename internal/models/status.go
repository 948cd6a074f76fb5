package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusLifetime is how long a status stays visible after creation.
const StatusLifetime = 24 * time.Hour

// Status is an ephemeral image post kept on the device. It serializes with
// camelCase keys and millisecond timestamps.
type Status struct {
	ID        string `json:"id" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Username  string `json:"username"`
	ImageURL  string `json:"imageUrl" validate:"required"`
	CreatedAt Millis `json:"createdAt"`
	ExpiresAt Millis `json:"expiresAt"`
}

// Expired reports whether the status is no longer visible at now.
func (s Status) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt.Time)
}

// CreateStatusRequest carries the image as a data URL.
type CreateStatusRequest struct {
	Image string `json:"image" validate:"required"`
}

// Millis is a time encoded as Unix milliseconds in JSON.
type Millis struct {
	time.Time
}

// NewMillis truncates t to millisecond precision.
func NewMillis(t time.Time) Millis {
	return Millis{time.UnixMilli(t.UnixMilli())}
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.UnixMilli())
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("millis: %w", err)
	}
	m.Time = time.UnixMilli(ms)
	return nil
}
