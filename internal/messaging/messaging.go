// Package messaging holds the conversation list and per-conversation chat
// windows of the signed-in user.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/realtime"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/rs/zerolog/log"
)

// Gateway is the authenticated messaging API.
type Gateway interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
	Send(ctx context.Context, conversationID, content string) (*models.Message, error)
}

// Inbox is the list of conversation previews, most recently updated first.
type Inbox struct {
	gw Gateway

	mu            sync.RWMutex
	conversations []models.Conversation
}

func NewInbox(gw Gateway) *Inbox {
	return &Inbox{gw: gw}
}

func (in *Inbox) Load(ctx context.Context) error {
	convs, err := in.gw.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	in.mu.Lock()
	in.conversations = convs
	in.mu.Unlock()
	return nil
}

func (in *Inbox) Conversations() []models.Conversation {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]models.Conversation, len(in.conversations))
	copy(out, in.conversations)
	return out
}

// Watch reloads the inbox on any change to messages.
func (in *Inbox) Watch(ctx context.Context, src realtime.Source) (supabase.Subscription, error) {
	return realtime.Watch(ctx, src, supabase.ChangesConfig{Table: "messages"}, "inbox", in.Load)
}

// Window is one open conversation.
type Window struct {
	id string
	gw Gateway

	mu       sync.RWMutex
	messages []models.Message
	draft    string
}

func NewWindow(conversationID string, gw Gateway) *Window {
	return &Window{id: conversationID, gw: gw}
}

func (w *Window) ID() string { return w.id }

// Load replaces the messages, oldest first.
func (w *Window) Load(ctx context.Context) error {
	msgs, err := w.gw.Messages(ctx, w.id)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	w.mu.Lock()
	w.messages = msgs
	w.mu.Unlock()
	return nil
}

func (w *Window) Messages() []models.Message {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

func (w *Window) SetDraft(s string) {
	w.mu.Lock()
	w.draft = s
	w.mu.Unlock()
}

func (w *Window) Draft() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.draft
}

// Send sends content, or the draft when content is empty. The draft is
// cleared only once the insert succeeds.
func (w *Window) Send(ctx context.Context, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		content = w.Draft()
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	msg, err := w.gw.Send(ctx, w.id, content)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", w.id).Msg("failed to send message")
		return nil, err
	}

	w.mu.Lock()
	w.draft = ""
	w.messages = append(w.messages, *msg)
	w.mu.Unlock()
	return msg, nil
}

// Watch reloads the window on any change to this conversation's messages.
func (w *Window) Watch(ctx context.Context, src realtime.Source) (supabase.Subscription, error) {
	cfg := supabase.ChangesConfig{
		Table:  "messages",
		Filter: "conversation_id=eq." + w.id,
	}
	return realtime.Watch(ctx, src, cfg, "messages", w.Load)
}
