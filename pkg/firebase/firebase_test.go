package firebase

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitFirebase_RequiresCredentials(t *testing.T) {
	_, err := InitFirebase(context.Background(), "", "bucket")
	assert.Error(t, err)

	_, err = InitFirebase(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "bucket")
	assert.ErrorContains(t, err, "not found")
}

func TestPublicURL(t *testing.T) {
	app := &App{BucketName: "onlyme.appspot.com"}
	assert.Equal(t,
		"https://storage.googleapis.com/onlyme.appspot.com/statuses/u1/a%20b.png",
		app.PublicURL("statuses/u1/a b.png"))
}
