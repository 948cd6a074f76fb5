package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/onlyme/internal/app"
	"github.com/anonto42/onlyme/internal/app/apptest"
	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/router"
	"github.com/anonto42/onlyme/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e        *echo.Echo
	backend  *apptest.Backend
	registry *app.Registry
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	backend := apptest.NewBackend()
	shared := backend.Shared(&apptest.Auth{})
	registry := app.NewRegistry(shared)
	t.Cleanup(registry.Close)

	e := echo.New()
	e.Validator = validators.NewValidator()
	router.SetupRoutes(e, router.Options{Registry: registry, Preferences: shared.Preferences})
	return &testServer{e: e, backend: backend, registry: registry}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, user string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"`+user+`@example.com","password":"pw-`+user+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestLogin(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"email":"u1@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email failed on email")

	token := s.login(t, "u1")
	assert.Equal(t, 1, s.registry.Len())

	rec = s.do(t, http.MethodGet, "/api/v1/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"u1"`)
}

func TestSignup(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"u5@example.com","password":"pw-u5","username":"five"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "five", s.backend.Profiles["u5"].Username)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"confirm-me@example.com","password":"secret1","username":"later"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/feed", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/feed", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "u1")

	rec := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.registry.Len())

	rec = s.do(t, http.MethodGet, "/api/v1/feed", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFeedAndLikes(t *testing.T) {
	s := newServer(t)
	s.backend.Posts = []models.Post{
		{ID: "p1", UserID: "u2", Content: "hello", Privacy: models.PrivacyPublic},
		{ID: "p2", UserID: "u2", Content: "secret", Privacy: models.PrivacyPrivate},
	}
	token := s.login(t, "u1")

	rec := s.do(t, http.MethodGet, "/api/v1/feed", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []map[string]interface{}
	decode(t, rec, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0]["id"])
	assert.Equal(t, false, posts[0]["is_liked"])

	rec = s.do(t, http.MethodPost, "/api/v1/posts/p1/like", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/v1/posts/p1/like", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, s.backend.Likes["p1"], 1)

	rec = s.do(t, http.MethodGet, "/api/v1/feed", token, "")
	decode(t, rec, &posts)
	assert.Equal(t, true, posts[0]["is_liked"])
	assert.Equal(t, float64(1), posts[0]["like_count"])

	rec = s.do(t, http.MethodDelete, "/api/v1/posts/p1/like", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.backend.Likes["p1"])

	rec = s.do(t, http.MethodPost, "/api/v1/posts/missing/like", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAndEditPost(t *testing.T) {
	s := newServer(t)
	s.backend.Posts = []models.Post{{ID: "p1", UserID: "u2", Content: "theirs", Privacy: models.PrivacyPublic}}
	token := s.login(t, "u1")

	rec := s.do(t, http.MethodPost, "/api/v1/posts", token, `{"content":"   "}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/posts", token, `{"content":"first post"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]interface{}
	decode(t, rec, &created)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	rec = s.do(t, http.MethodPatch, "/api/v1/posts/"+id, token, `{"content":"edited"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "edited", s.backend.Posts[0].Content)

	rec = s.do(t, http.MethodPatch, "/api/v1/posts/p1", token, `{"content":"hijack"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnlockPrivatePost(t *testing.T) {
	s := newServer(t)
	s.backend.Posts = []models.Post{{ID: "p2", UserID: "u2", MediaURL: "https://cdn/x.png", MediaType: "image", Privacy: models.PrivacyPrivate}}
	s.backend.Balances["u1"] = models.Balance{Points: 15}
	s.backend.Balances["u3"] = models.Balance{Points: 5}

	token := s.login(t, "u1")
	rec := s.do(t, http.MethodGet, "/api/v1/users/u2/posts", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []map[string]interface{}
	decode(t, rec, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, true, posts[0]["media_locked"])

	rec = s.do(t, http.MethodPost, "/api/v1/posts/p2/unlock", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Post   map[string]interface{} `json:"post"`
		Points int64                  `json:"points"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, false, resp.Post["media_locked"])
	assert.Equal(t, int64(5), resp.Points)

	poor := s.login(t, "u3")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/users/u2/posts", poor, "").Code)
	rec = s.do(t, http.MethodPost, "/api/v1/posts/p2/unlock", poor, "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, int64(5), s.backend.Balances["u3"].Points)
}

func TestWallet(t *testing.T) {
	s := newServer(t)
	s.backend.Balances["u1"] = models.Balance{Points: 500}
	token := s.login(t, "u1")

	rec := s.do(t, http.MethodGet, "/api/v1/wallet/packages", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points":1000,"worth":900`)

	rec = s.do(t, http.MethodPost, "/api/v1/wallet/convert", token, `{"points":1000}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/wallet/topup", token, `{"amount":1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bal models.Balance
	decode(t, rec, &bal)
	assert.Equal(t, int64(1500), bal.Points)

	rec = s.do(t, http.MethodPost, "/api/v1/wallet/convert", token, `{"points":1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var conv struct {
		MoneyAmount float64        `json:"money_amount"`
		Balance     models.Balance `json:"balance"`
	}
	decode(t, rec, &conv)
	assert.Equal(t, 900.0, conv.MoneyAmount)
	assert.Equal(t, int64(500), conv.Balance.Points)

	rec = s.do(t, http.MethodGet, "/api/v1/wallet/earnings", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":900`)
}

func TestFollow(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "u1")

	rec := s.do(t, http.MethodPost, "/api/v1/users/u1/follow", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		rec = s.do(t, http.MethodPost, "/api/v1/users/u2/follow", token, "")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Len(t, s.backend.Followers, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/users/u2/followers", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"u1"`)

	rec = s.do(t, http.MethodDelete, "/api/v1/users/u2/follow", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.backend.Followers)
}

func TestTheme(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "u1")

	rec := s.do(t, http.MethodGet, "/api/v1/settings/theme", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"light"`)

	rec = s.do(t, http.MethodPut, "/api/v1/settings/theme", token, `{"theme":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/settings/theme", token, `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/settings/theme", token, "")
	assert.Contains(t, rec.Body.String(), `"dark"`)
}

func TestStatusViewerWithoutStatuses(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "u1")

	rec := s.do(t, http.MethodGet, "/api/v1/statuses", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/statuses", token, `{"image":"data:text/plain;base64,aGk="}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/statuses/nope/view", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
