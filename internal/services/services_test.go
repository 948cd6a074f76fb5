package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthorizer struct {
	userID string
}

func (f fakeAuthorizer) Authorize(ctx context.Context) (context.Context, session.Identity, error) {
	if f.userID == "" {
		return ctx, session.Identity{}, session.ErrUnauthenticated
	}
	return supabase.WithAccessToken(ctx, "token-"+f.userID), session.Identity{UserID: f.userID}, nil
}

type fakePosts struct {
	calls   int
	created *models.Post
}

func (f *fakePosts) GetFeed(context.Context) ([]models.Post, error) {
	f.calls++
	return []models.Post{{ID: "p1"}}, nil
}

func (f *fakePosts) GetPostsByUser(context.Context, string) ([]models.Post, error) {
	f.calls++
	return nil, nil
}

func (f *fakePosts) GetPostByID(context.Context, string) (*models.Post, error) {
	f.calls++
	return &models.Post{ID: "p1"}, nil
}

func (f *fakePosts) CreatePost(_ context.Context, p *models.Post) (*models.Post, error) {
	f.calls++
	f.created = p
	out := *p
	out.ID = "new"
	return &out, nil
}

func (f *fakePosts) UpdateContent(_ context.Context, id, content string) (*models.Post, error) {
	f.calls++
	return &models.Post{ID: id, Content: content}, nil
}

type fakeLikes struct {
	token  string
	userID string
}

func (f *fakeLikes) CreateLike(ctx context.Context, postID, userID string) (*models.Like, error) {
	f.token = supabase.AccessTokenFrom(ctx)
	f.userID = userID
	return &models.Like{PostID: postID, UserID: userID}, nil
}

func (f *fakeLikes) DeleteLike(context.Context, string, string) error { return nil }

func (f *fakeLikes) GetLikesByPostID(context.Context, string) ([]models.LikeRef, error) {
	return nil, nil
}

type fakeUploader struct {
	bucket      string
	contentType string
	data        []byte
}

func (f *fakeUploader) Upload(_ context.Context, bucket, name string, data []byte, contentType string) (string, error) {
	f.bucket = bucket
	f.contentType = contentType
	f.data = data
	return "https://cdn.example.com/" + bucket + "/" + name, nil
}

type fakeUsers struct {
	searches int
	granted  *models.PrivateAccess
}

func (f *fakeUsers) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	return &models.Profile{ID: id}, nil
}

func (f *fakeUsers) UpsertProfile(_ context.Context, p *models.Profile) (*models.Profile, error) {
	return p, nil
}

func (f *fakeUsers) SearchProfiles(context.Context, string) ([]models.Profile, error) {
	f.searches++
	return []models.Profile{{ID: "u2"}}, nil
}

func (f *fakeUsers) HasPrivateAccess(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeUsers) GrantPrivateAccess(_ context.Context, a *models.PrivateAccess) error {
	f.granted = a
	return nil
}

func TestPostService_FailsFastWhenSignedOut(t *testing.T) {
	posts := &fakePosts{}
	svc := NewPostService(fakeAuthorizer{}, posts, &fakeLikes{}, nil, nil)

	_, err := svc.Feed(context.Background())
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	_, err = svc.CreatePost(context.Background(), models.CreatePostRequest{Content: "hi"})
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	_, err = svc.EditPost(context.Background(), "p1", "x")
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.ErrorIs(t, svc.Unlike(context.Background(), "p1"), session.ErrUnauthenticated)

	assert.Zero(t, posts.calls)
}

func TestPostService_LikeUsesCurrentUserAndToken(t *testing.T) {
	likes := &fakeLikes{}
	svc := NewPostService(fakeAuthorizer{userID: "u1"}, &fakePosts{}, likes, nil, nil)

	like, err := svc.Like(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "u1", like.UserID)
	assert.Equal(t, "u1", likes.userID)
	assert.Equal(t, "token-u1", likes.token)
}

func TestPostService_CreatePostWithMedia(t *testing.T) {
	posts := &fakePosts{}
	up := &fakeUploader{}
	svc := NewPostService(fakeAuthorizer{userID: "u1"}, posts, &fakeLikes{}, nil, up)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	post, err := svc.CreatePost(context.Background(), models.CreatePostRequest{Content: "look", Media: dataURL})
	require.NoError(t, err)

	assert.Equal(t, "new", post.ID)
	assert.Equal(t, "post-images", up.bucket)
	assert.Equal(t, "image/png", up.contentType)
	assert.Equal(t, []byte("png-bytes"), up.data)
	assert.Equal(t, "u1", posts.created.UserID)
	assert.Equal(t, models.PrivacyPublic, posts.created.Privacy)
	assert.Equal(t, "image", posts.created.MediaType)
	assert.Contains(t, posts.created.MediaURL, "https://cdn.example.com/post-images/u1/")
}

func TestPostService_CreatePostMediaErrors(t *testing.T) {
	ctx := context.Background()
	png := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x"))

	svc := NewPostService(fakeAuthorizer{userID: "u1"}, &fakePosts{}, &fakeLikes{}, nil, nil)
	_, err := svc.CreatePost(ctx, models.CreatePostRequest{Media: png})
	assert.ErrorIs(t, err, ErrUploadsDisabled)

	svc = NewPostService(fakeAuthorizer{userID: "u1"}, &fakePosts{}, &fakeLikes{}, nil, &fakeUploader{})
	pdf := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("x"))
	_, err = svc.CreatePost(ctx, models.CreatePostRequest{Media: pdf})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = svc.CreatePost(ctx, models.CreatePostRequest{Media: "not a data url"})
	assert.Error(t, err)
}

func TestProfileService_SearchSkipsEmptyQuery(t *testing.T) {
	users := &fakeUsers{}
	svc := NewProfileService(fakeAuthorizer{userID: "u1"}, users)

	got, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, users.searches)

	got, err = svc.Search(context.Background(), "ali")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProfileService_PrivateAccess(t *testing.T) {
	users := &fakeUsers{}
	svc := NewProfileService(fakeAuthorizer{userID: "u1"}, users)
	fixed := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	ok, err := svc.HasPrivateAccess(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok, "creators always see their own private posts")

	access, err := svc.SubscribePrivate(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", access.SubscriberID)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), access.ExpiresAt)
	assert.Same(t, access, users.granted)
}

type failingPoints struct{}

func (failingPoints) GivePoints(context.Context, string, int64) error { return errors.New("boom") }
func (failingPoints) AddPoints(context.Context, int64) error          { return errors.New("boom") }
func (failingPoints) ConvertPointsToMoney(context.Context, int64) (*models.ConvertResult, error) {
	return nil, errors.New("boom")
}
func (failingPoints) GetBalance(context.Context, string) (*models.Balance, error) {
	return nil, errors.New("boom")
}
func (failingPoints) GetTransactions(context.Context, string) ([]models.Transaction, error) {
	return nil, errors.New("boom")
}

func TestPointsService_PropagatesRemoteErrors(t *testing.T) {
	svc := NewPointsService(fakeAuthorizer{userID: "u1"}, failingPoints{})
	assert.EqualError(t, svc.GivePoints(context.Background(), "p1", 10), "boom")

	svc = NewPointsService(fakeAuthorizer{}, failingPoints{})
	_, err := svc.Balance(context.Background())
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}
