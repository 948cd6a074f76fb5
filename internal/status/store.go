// Package status manages ephemeral image statuses kept in local state. A
// status is visible for 24 hours after creation and is pruned lazily the
// next time the collection is loaded.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/onlyme/internal/localstore"
	"github.com/anonto42/onlyme/internal/media"
	"github.com/anonto42/onlyme/internal/metrics"
	"github.com/anonto42/onlyme/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidImage   = errors.New("status image must be a decodable image")
	ErrStatusNotFound = errors.New("status not found")
)

// Author is the user a new status is attributed to.
type Author struct {
	UserID   string
	Username string
}

// Store reads and writes the status collection. It is shared by every user
// of the device, so read-modify-write cycles hold mu.
type Store struct {
	local    localstore.Store
	uploader media.Uploader
	now      func() time.Time

	mu sync.Mutex
}

// NewStore returns a store over local. When uploader is nil the image is
// kept inline as its data URL.
func NewStore(local localstore.Store, uploader media.Uploader) *Store {
	return &Store{local: local, uploader: uploader, now: time.Now}
}

// Create validates the image and prepends a new status to the collection.
// Nothing is written when the image is rejected or the upload fails, and
// nothing is uploaded when the collection cannot be read.
func (s *Store) Create(ctx context.Context, author Author, imageDataURL string) (*models.Status, error) {
	contentType, data, err := media.ParseDataURL(imageDataURL)
	if err != nil || !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	imageURL := imageDataURL
	object := ""
	if s.uploader != nil {
		object = media.ObjectName(author.UserID, contentType)
		imageURL, err = s.uploader.Upload(ctx, media.BucketStatuses, object, data, contentType)
		if err != nil {
			return nil, fmt.Errorf("upload status image: %w", err)
		}
	}

	now := s.now()
	st := models.Status{
		ID:        uuid.NewString(),
		UserID:    author.UserID,
		Username:  author.Username,
		ImageURL:  imageURL,
		CreatedAt: models.NewMillis(now),
		ExpiresAt: models.NewMillis(now.Add(models.StatusLifetime)),
	}
	all = append([]models.Status{st}, all...)
	if err := s.write(ctx, all); err != nil {
		if object != "" {
			log.Error().Err(err).Str("bucket", media.BucketStatuses).Str("object", object).Msg("status image orphaned by failed write")
		}
		return nil, err
	}

	metrics.RecordStatusCreated()
	log.Info().Str("status_id", st.ID).Str("user_id", st.UserID).Msg("status created")
	return &st, nil
}

// Load returns the visible statuses, most recent first. Expired entries are
// removed from the persisted collection.
func (s *Store) Load(ctx context.Context) ([]models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visible := make([]models.Status, 0, len(all))
	for _, st := range all {
		if !st.Expired(now) {
			visible = append(visible, st)
		}
	}

	if dropped := len(all) - len(visible); dropped > 0 {
		if err := s.write(ctx, visible); err != nil {
			return nil, err
		}
		log.Debug().Int("dropped", dropped).Msg("pruned expired statuses")
	}
	return visible, nil
}

// GroupByAuthorForViewing returns the visible statuses by the author of
// clicked, in collection order, and the position of clicked within them.
func (s *Store) GroupByAuthorForViewing(ctx context.Context, clickedID string) ([]models.Status, int, error) {
	visible, err := s.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	var author string
	for _, st := range visible {
		if st.ID == clickedID {
			author = st.UserID
			break
		}
	}
	if author == "" {
		return nil, 0, ErrStatusNotFound
	}

	group := make([]models.Status, 0)
	index := 0
	for _, st := range visible {
		if st.UserID != author {
			continue
		}
		if st.ID == clickedID {
			index = len(group)
		}
		group = append(group, st)
	}
	return group, index, nil
}

func (s *Store) read(ctx context.Context) ([]models.Status, error) {
	raw, err := s.local.Get(ctx, localstore.KeyStatuses)
	if errors.Is(err, localstore.ErrNotFound) {
		return []models.Status{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read statuses: %w", err)
	}

	var all []models.Status
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decode statuses: %w", err)
	}
	return all, nil
}

func (s *Store) write(ctx context.Context, all []models.Status) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode statuses: %w", err)
	}
	if err := s.local.Set(ctx, localstore.KeyStatuses, raw); err != nil {
		return fmt.Errorf("write statuses: %w", err)
	}
	return nil
}
