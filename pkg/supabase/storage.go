package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// StorageClient handles object storage operations.
type StorageClient struct {
	client *Client
}

// Storage returns the storage client.
func (c *Client) Storage() *StorageClient {
	return &StorageClient{client: c}
}

// BucketClient handles operations on a single bucket.
type BucketClient struct {
	client *Client
	bucket string
}

// From returns a bucket client.
func (s *StorageClient) From(bucket string) *BucketClient {
	return &BucketClient{client: s.client, bucket: bucket}
}

// Upload stores data at path. With upsert an existing object is replaced.
func (b *BucketClient) Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{"Content-Type": contentType}
	if upsert {
		headers["x-upsert"] = "true"
	}

	urlStr := fmt.Sprintf("%s/object/%s/%s", b.client.storageURL, b.bucket, escapePath(path))
	_, err := b.client.request(ctx, http.MethodPost, urlStr, "storage/"+b.bucket, data, headers)
	return err
}

// Remove deletes objects.
func (b *BucketClient) Remove(ctx context.Context, paths []string) error {
	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	urlStr := fmt.Sprintf("%s/object/%s", b.client.storageURL, b.bucket)
	_, err = b.client.request(ctx, http.MethodDelete, urlStr, "storage/"+b.bucket, body, nil)
	return err
}

// PublicURL returns the public URL of an object in a public bucket.
func (b *BucketClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", b.client.storageURL, b.bucket, escapePath(path))
}

func escapePath(p string) string {
	parts := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
