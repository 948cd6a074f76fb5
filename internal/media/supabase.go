package media

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/pkg/supabase"
)

// SupabaseUploader writes to the backend's storage buckets.
type SupabaseUploader struct {
	client *supabase.Client
}

func NewSupabaseUploader(client *supabase.Client) *SupabaseUploader {
	return &SupabaseUploader{client: client}
}

// Upload stores the object with the caller's token from ctx so bucket
// policies apply per user.
func (u *SupabaseUploader) Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error) {
	b := u.client.Storage().From(bucket)
	if err := b.Upload(ctx, name, data, contentType, false); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}
	return b.PublicURL(name), nil
}
