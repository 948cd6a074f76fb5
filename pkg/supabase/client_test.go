package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/", AnonKey: "anon-key"})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, err := New(Config{AnonKey: "k"})
	assert.Error(t, err)

	_, err = New(Config{URL: "http://localhost"})
	assert.Error(t, err)

	c, err := New(Config{URL: "http://localhost/", AnonKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost", c.BaseURL())
	assert.Equal(t, "k", c.AnonKey())
}

func TestSelect_BuildsPostgRESTQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`[]`))
	})

	_, err := c.From("posts").
		Select(`id, content,
			likes(user_id)`).
		Eq("user_id", "u1").
		Order("created_at", OrderDesc).
		OrderForeign("comments", "created_at", OrderAsc).
		Limit(20).
		Execute(context.Background())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/rest/v1/posts", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "id,content,likes(user_id)", q.Get("select"))
	assert.Equal(t, "eq.u1", q.Get("user_id"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "created_at.asc", q.Get("comments.order"))
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", got.Header.Get("Authorization"))
}

func TestRequest_UsesAccessTokenFromContext(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	ctx := WithAccessToken(context.Background(), "user-token")
	_, err := c.From("likes").Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", auth)
}

func TestInsert_SendsBodyAndPrefer(t *testing.T) {
	var (
		method, prefer, ctype string
		body                  map[string]any
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		prefer = r.Header.Get("Prefer")
		ctype = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"c1"}]`))
	})

	var rows []map[string]any
	err := c.From("comments").Insert(map[string]any{"post_id": "p1", "content": "hi"}).ExecuteInto(context.Background(), &rows)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "return=representation", prefer)
	assert.Equal(t, "application/json", ctype)
	assert.Equal(t, "hi", body["content"])
	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0]["id"])
}

func TestUpsert_SetsOnConflict(t *testing.T) {
	var r0 *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r0 = r
		w.Write([]byte(`[]`))
	})

	_, err := c.From("profiles").Upsert(map[string]any{"id": "u1"}, "id").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", r0.URL.Query().Get("on_conflict"))
	assert.Contains(t, r0.Header.Get("Prefer"), "resolution=merge-duplicates")
}

func TestSingle_NoRows(t *testing.T) {
	var accept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned","details":"The result contains 0 rows"}`))
	})

	_, err := c.From("points_balance").Eq("user_id", "u1").Single().Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, "application/vnd.pgrst.object+json", accept)
	assert.True(t, IsNoRows(err))
	assert.False(t, IsUniqueViolation(err))
}

func TestErrors_Classified(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unique", http.StatusConflict, `{"code":"23505","message":"duplicate key"}`, IsUniqueViolation},
		{"unauthorized", http.StatusUnauthorized, `{"msg":"invalid JWT"}`, IsUnauthorized},
		{"plain text", http.StatusBadGateway, `upstream down`, func(err error) bool {
			var apiErr *Error
			return assert.ErrorAs(t, err, &apiErr) && apiErr.Message == "upstream down" && apiErr.StatusCode == 502
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.From("likes").Execute(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestCount_FromContentRange(t *testing.T) {
	var method, prefer string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		prefer = r.Header.Get("Prefer")
		w.Header().Set("Content-Range", "*/7")
	})

	resp, err := c.From("notifications").Select("*").Eq("read", false).Count("exact").Head().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, method)
	assert.Equal(t, "count=exact", prefer)

	n, ok := resp.Count()
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = (&Response{Header: http.Header{"Content-Range": {"0-9/*"}}}).Count()
	assert.False(t, ok)
}

func TestRawFilter(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("conversation_id")
		w.Write([]byte(`[]`))
	})

	_, err := c.From("messages").RawFilter("conversation_id=eq.42").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eq.42", query)

	_, err = c.From("messages").RawFilter("nonsense").Execute(context.Background())
	assert.Error(t, err)
}

func TestRPC(t *testing.T) {
	var (
		path   string
		params map[string]any
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&params)
		w.Write([]byte(`null`))
	})

	_, err := c.RPC(context.Background(), "give_points", map[string]any{"post_id": "p1", "amount": 10})
	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/rpc/give_points", path)
	assert.Equal(t, "p1", params["post_id"])
	assert.Equal(t, float64(10), params["amount"])
}

func TestObserver_CalledPerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var (
		mu    sync.Mutex
		calls []string
	)
	c, err := New(Config{
		URL:     srv.URL,
		AnonKey: "k",
		Observer: func(method, resource string, status int, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, method+" "+resource+" "+http.StatusText(status))
		},
	})
	require.NoError(t, err)

	_, _ = c.From("posts").Execute(context.Background())
	_, _ = c.RPC(context.Background(), "add_points", map[string]int{"amount": 1000})

	assert.Equal(t, []string{
		"GET posts I'm a teapot",
		"POST rpc/add_points I'm a teapot",
	}, calls)
}

func TestAuth_SignInAndGetUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
			w.Write([]byte(`{"access_token":"at","token_type":"bearer","expires_in":3600,"refresh_token":"rt","user":{"id":"u1","email":"a@b.c"}}`))
		case "/auth/v1/user":
			assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id":"u1","email":"a@b.c"}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	_, err := c.Auth().SignInWithPassword(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")

	sess, err := c.Auth().SignInWithPassword(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	require.NotNil(t, sess.User)
	assert.Equal(t, "u1", sess.User.ID)

	ctx := WithAccessToken(context.Background(), sess.AccessToken)
	user, err := c.Auth().GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", user.Email)

	assert.NoError(t, c.Auth().SignOut(ctx))
}

func TestStorage_UploadAndPublicURL(t *testing.T) {
	var (
		path, ctype, upsert string
		data                []byte
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		ctype = r.Header.Get("Content-Type")
		upsert = r.Header.Get("x-upsert")
		data, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"Key":"post-images/u1/a b.png"}`))
	})

	bucket := c.Storage().From("post-images")
	err := bucket.Upload(context.Background(), "u1/a b.png", []byte("png"), "image/png", false)
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/post-images/u1/a%20b.png", path)
	assert.Equal(t, "image/png", ctype)
	assert.Empty(t, upsert)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, c.BaseURL()+"/storage/v1/object/public/post-images/u1/a%20b.png", bucket.PublicURL("u1/a b.png"))
}
