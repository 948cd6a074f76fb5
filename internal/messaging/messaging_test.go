package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	convs   []models.Conversation
	msgs    map[string][]models.Message
	sendErr error
	loads   int
}

func (f *fakeGateway) Conversations(context.Context) ([]models.Conversation, error) {
	f.loads++
	return f.convs, nil
}

func (f *fakeGateway) Messages(_ context.Context, id string) ([]models.Message, error) {
	f.loads++
	return f.msgs[id], nil
}

func (f *fakeGateway) Send(_ context.Context, id, content string) (*models.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	m := models.Message{ID: "m-new", ConversationID: id, SenderID: "u1", Content: content, CreatedAt: time.Now()}
	f.msgs[id] = append(f.msgs[id], m)
	return &m, nil
}

type captureSource struct {
	cfg     supabase.ChangesConfig
	handler supabase.EventHandler
}

func (c *captureSource) Subscribe(_ context.Context, cfg supabase.ChangesConfig, h supabase.EventHandler) (supabase.Subscription, error) {
	c.cfg = cfg
	c.handler = h
	return nil, nil
}

func TestInbox_LoadAndWatch(t *testing.T) {
	gw := &fakeGateway{convs: []models.Conversation{{ID: "c2"}, {ID: "c1"}}}
	in := NewInbox(gw)
	require.NoError(t, in.Load(context.Background()))
	assert.Equal(t, "c2", in.Conversations()[0].ID)

	src := &captureSource{}
	_, err := in.Watch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "messages", src.cfg.Table)
	assert.Empty(t, src.cfg.Filter)

	src.handler(supabase.ChangeEvent{Type: supabase.EventInsert})
	assert.Equal(t, 2, gw.loads)
}

func TestWindow_SendClearsDraftOnlyOnSuccess(t *testing.T) {
	gw := &fakeGateway{msgs: map[string][]models.Message{}}
	w := NewWindow("c1", gw)
	w.SetDraft("hello there")

	gw.sendErr = errors.New("rls denied")
	_, err := w.Send(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, "hello there", w.Draft())
	assert.Empty(t, w.Messages())

	gw.sendErr = nil
	msg, err := w.Send(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Content)
	assert.Empty(t, w.Draft())
	assert.Len(t, w.Messages(), 1)
}

func TestWindow_EmptyMessageIsNoop(t *testing.T) {
	gw := &fakeGateway{msgs: map[string][]models.Message{}}
	w := NewWindow("c1", gw)

	msg, err := w.Send(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Empty(t, gw.msgs["c1"])
}

func TestWindow_WatchFiltersByConversation(t *testing.T) {
	gw := &fakeGateway{msgs: map[string][]models.Message{"c1": {{ID: "m1"}}}}
	w := NewWindow("c1", gw)
	src := &captureSource{}

	_, err := w.Watch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "conversation_id=eq.c1", src.cfg.Filter)

	src.handler(supabase.ChangeEvent{Type: supabase.EventUpdate})
	assert.Len(t, w.Messages(), 1)
}
