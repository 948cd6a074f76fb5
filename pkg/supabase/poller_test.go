package supabase

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangePoller_FiresOnlyWhenRowsChange(t *testing.T) {
	var (
		body   atomic.Value
		filter atomic.Value
	)
	body.Store(`[{"id":"1"}]`)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		filter.Store(r.URL.Query().Get("conversation_id"))
		w.Header().Set("Content-Range", "0-0/1")
		w.Write([]byte(body.Load().(string)))
	})

	p := NewChangePoller(c, time.Hour)
	defer p.Stop()

	var fired atomic.Int32
	sub, err := p.Subscribe(context.Background(), ChangesConfig{
		Table:  "messages",
		Filter: "conversation_id=eq.7",
	}, func(ev ChangeEvent) {
		assert.Equal(t, EventAll, ev.Type)
		assert.Equal(t, "messages", ev.Table)
		fired.Add(1)
	})
	require.NoError(t, err)
	assert.Equal(t, "eq.7", filter.Load())

	ps := sub.(*pollSubscription)
	entry := p.cron.Entry(ps.id)
	require.True(t, entry.Valid())

	// unchanged
	entry.Job.Run()
	assert.Equal(t, int32(0), fired.Load())

	body.Store(`[{"id":"2"},{"id":"1"}]`)
	entry.Job.Run()
	assert.Equal(t, int32(1), fired.Load())

	entry.Job.Run()
	assert.Equal(t, int32(1), fired.Load())

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, p.cron.Entry(ps.id).Valid())
}

func TestChangePoller_BaselineErrorFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	p := NewChangePoller(c, time.Hour)
	defer p.Stop()

	_, err := p.Subscribe(context.Background(), ChangesConfig{Table: "posts"}, nil)
	assert.Error(t, err)
}

func TestChangePoller_PollsWithCurrentToken(t *testing.T) {
	var auth atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})
	p := NewChangePoller(c, time.Hour)
	defer p.Stop()

	var current atomic.Value
	current.Store("first")
	ctx := WithAccessToken(context.Background(), "subscribe-time")
	sub, err := p.Subscribe(ctx, ChangesConfig{
		Table: "posts",
		Token: func() string { return current.Load().(string) },
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer subscribe-time", auth.Load())

	entry := p.cron.Entry(sub.(*pollSubscription).id)
	current.Store("refreshed")
	entry.Job.Run()
	assert.Equal(t, "Bearer refreshed", auth.Load())

	current.Store("")
	entry.Job.Run()
	assert.Equal(t, "Bearer subscribe-time", auth.Load())
}
