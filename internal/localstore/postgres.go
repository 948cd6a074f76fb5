package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore keeps state in the local_state table.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the local_state table if needed.
func (s *PostgresStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.LocalState{}); err != nil {
		return fmt.Errorf("migrate local_state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row models.LocalState
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get local state %s: %w", key, err)
	}
	return []byte(row.Value), nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	row := models.LocalState{Key: key, Value: string(value)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set local state %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.LocalState{}).Error
	if err != nil {
		return fmt.Errorf("delete local state %s: %w", key, err)
	}
	return nil
}
