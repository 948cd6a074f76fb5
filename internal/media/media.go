// Package media uploads user images to object storage and returns their
// public URLs.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
)

const (
	BucketPostImages = "post-images"
	BucketStatuses   = "statuses"
)

var ErrInvalidDataURL = errors.New("invalid data URL")

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error)
}

// ParseDataURL decodes a base64 data URL such as
// "data:image/png;base64,iVBOR...".
func ParseDataURL(s string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	contentType = meta
	if contentType == "" {
		contentType = "text/plain"
	}
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return contentType, data, nil
}

// ObjectName returns a unique object name under the owner's prefix.
func ObjectName(ownerID, contentType string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("%s/%s%s", ownerID, uuid.NewString(), ext)
}

// MediaType classifies a content type as "image" or "video"; anything else
// is rejected.
func MediaType(contentType string) (string, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image", true
	case strings.HasPrefix(contentType, "video/"):
		return "video", true
	}
	return "", false
}
