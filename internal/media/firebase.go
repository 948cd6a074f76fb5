package media

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/pkg/firebase"
)

// FirebaseUploader writes to the default Firebase Storage bucket.
type FirebaseUploader struct {
	app *firebase.App
}

func NewFirebaseUploader(app *firebase.App) *FirebaseUploader {
	return &FirebaseUploader{app: app}
}

func (u *FirebaseUploader) Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error) {
	object := bucket + "/" + name
	w := u.app.Bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", object, err)
	}
	return u.app.PublicURL(object), nil
}
