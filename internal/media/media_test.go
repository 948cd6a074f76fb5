package media

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/onlyme/pkg/supabase"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURL(t *testing.T) {
	ct, data, err := ParseDataURL("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, []byte("hello"), data)

	for _, bad := range []string{
		"",
		"http://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,hello",
		"data:image/png;base64,!!!",
		"data:;;;base64,aGVsbG8=",
	} {
		_, _, err := ParseDataURL(bad)
		assert.ErrorIs(t, err, ErrInvalidDataURL, bad)
	}
}

func TestObjectName(t *testing.T) {
	a := ObjectName("u1", "image/png")
	b := ObjectName("u1", "image/png")
	assert.True(t, strings.HasPrefix(a, "u1/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestMediaType(t *testing.T) {
	kind, ok := MediaType("video/mp4")
	assert.True(t, ok)
	assert.Equal(t, "video", kind)

	_, ok = MediaType("application/pdf")
	assert.False(t, ok)
}

func TestSupabaseUploader(t *testing.T) {
	var (
		path, auth string
		body       []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"Key":"x"}`))
	}))
	defer srv.Close()

	client, err := supabase.New(supabase.Config{URL: srv.URL, AnonKey: "anon"})
	require.NoError(t, err)

	ctx := supabase.WithAccessToken(context.Background(), "jwt")
	url, err := NewSupabaseUploader(client).Upload(ctx, BucketPostImages, "u1/p.png", []byte("png"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/post-images/u1/p.png", path)
	assert.Equal(t, "Bearer jwt", auth)
	assert.Equal(t, []byte("png"), body)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/post-images/u1/p.png", url)
}

func TestS3Uploader(t *testing.T) {
	var (
		method, path, ctype string
		body                []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		ctype = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := NewS3Uploader(context.Background(), S3Options{
		Bucket:   "media",
		Region:   "us-east-1",
		Endpoint: srv.URL,
	}, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")))
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), BucketStatuses, "u1/s.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/media/statuses/u1/s.jpg", path)
	assert.Equal(t, "image/jpeg", ctype)
	assert.True(t, bytes.Contains(body, []byte("jpeg-bytes")))
	assert.Equal(t, srv.URL+"/media/statuses/u1/s.jpg", url)
}

func TestS3Uploader_PublicURLWithoutEndpoint(t *testing.T) {
	u := &S3Uploader{bucket: "media", region: "eu-west-1"}
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/post-images/a.png", u.publicURL("post-images/a.png"))
}
