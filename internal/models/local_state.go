package models

import "time"

// LocalState is a key/value row of the postgres-backed local store.
type LocalState struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (LocalState) TableName() string {
	return "local_state"
}
