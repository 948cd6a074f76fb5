package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/tidwall/gjson"
)

// The inbox embeds conversation_participants twice: "me" filters to the
// caller, "participants" lists everyone.
const conversationColumns = `
	id, created_at, updated_at,
	me:conversation_participants!inner(user_id),
	participants:conversation_participants(
		profiles(id, username, avatar_url)
	),
	messages(id, conversation_id, sender_id, content, created_at)`

// MessageRepository defines the interface for conversations and messages
type MessageRepository interface {
	GetConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error)
}

// SupabaseMessageRepository implements MessageRepository over PostgREST
type SupabaseMessageRepository struct {
	client *supabase.Client
}

// NewSupabaseMessageRepository creates a new SupabaseMessageRepository
func NewSupabaseMessageRepository(client *supabase.Client) *SupabaseMessageRepository {
	return &SupabaseMessageRepository{client: client}
}

// GetConversations returns the conversations userID takes part in, most
// recently updated first, each with its latest message.
func (r *SupabaseMessageRepository) GetConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	resp, err := r.client.From("conversations").
		Select(conversationColumns).
		Eq("me.user_id", userID).
		Order("updated_at", supabase.OrderDesc).
		OrderForeign("messages", "created_at", supabase.OrderDesc).
		LimitForeign("messages", 1).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get conversations: %w", err)
	}
	return mapConversations(resp.Body)
}

func mapConversations(body []byte) ([]models.Conversation, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrUnexpectedShape)
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrUnexpectedShape, res.Type)
	}

	out := make([]models.Conversation, 0, len(res.Array()))
	for i, item := range res.Array() {
		if err := checkPaths(item, []string{"id", "participants"}); err != nil {
			return nil, fmt.Errorf("conversation %d: %w", i, err)
		}
		conv := models.Conversation{
			ID:        item.Get("id").String(),
			CreatedAt: item.Get("created_at").Time(),
			UpdatedAt: item.Get("updated_at").Time(),
		}
		for _, p := range item.Get("participants").Array() {
			prof := p.Get("profiles")
			if !prof.IsObject() {
				continue
			}
			conv.Participants = append(conv.Participants, models.Profile{
				ID:        prof.Get("id").String(),
				Username:  prof.Get("username").String(),
				AvatarURL: prof.Get("avatar_url").String(),
			})
		}
		if last := item.Get("messages.0"); last.Exists() {
			conv.LastMessage = &models.Message{
				ID:             last.Get("id").String(),
				ConversationID: last.Get("conversation_id").String(),
				SenderID:       last.Get("sender_id").String(),
				Content:        last.Get("content").String(),
				CreatedAt:      last.Get("created_at").Time(),
			}
		}
		if err := validate.Struct(&conv); err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrUnexpectedShape, i, err)
		}
		out = append(out, conv)
	}
	return out, nil
}

// GetMessages returns the messages of a conversation, oldest first.
func (r *SupabaseMessageRepository) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	resp, err := r.client.From("messages").
		Select("*, sender:profiles!messages_sender_id_fkey(username)").
		Eq("conversation_id", conversationID).
		Order("created_at", supabase.OrderAsc).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messages of %s: %w", conversationID, err)
	}
	return decodeList[models.Message](resp.Body, "id", "sender_id", "content")
}

func (r *SupabaseMessageRepository) SendMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	resp, err := r.client.From("messages").
		Insert(map[string]any{
			"conversation_id": conversationID,
			"sender_id":       senderID,
			"content":         content,
		}).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return decodeOne[models.Message](resp.Body, "id", "conversation_id")
}

