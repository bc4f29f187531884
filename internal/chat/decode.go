package chat

import (
	"fmt"

	"github.com/lucasvidela/chatsync/internal/store"
)

// DecodeError reports a remote document that cannot be mapped onto a local
// entity. The change carrying it is dropped; it never corrupts the store.
type DecodeError struct {
	Collection string
	ID         string
	Field      string
	Reason     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s/%s: field %q: %s", e.Collection, e.ID, e.Field, e.Reason)
}

func decodeString(data map[string]any, field string) string {
	s, _ := data[field].(string)
	return s
}

// decodeInt64 accepts the numeric shapes the bson decoder produces for a
// map[string]any target.
func decodeInt64(data map[string]any, field string) (int64, bool) {
	switch v := data[field].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func decodeMessage(id string, data map[string]any) (*store.Message, error) {
	chatID := decodeString(data, "chat_id")
	if chatID == "" {
		return nil, &DecodeError{Collection: "messages", ID: id, Field: "chat_id", Reason: "missing or not a string"}
	}
	senderID := decodeString(data, "sender_id")
	if senderID == "" {
		return nil, &DecodeError{Collection: "messages", ID: id, Field: "sender_id", Reason: "missing or not a string"}
	}
	ts, ok := decodeInt64(data, "timestamp")
	if !ok {
		return nil, &DecodeError{Collection: "messages", ID: id, Field: "timestamp", Reason: "missing or not numeric"}
	}

	status := decodeString(data, "status")
	if status == "" {
		// A document that exists remotely is at least sent.
		status = store.StatusSent
	}
	return &store.Message{
		ID:        id,
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      decodeString(data, "text"),
		ImageRef:  decodeString(data, "image_ref"),
		AudioRef:  decodeString(data, "audio_ref"),
		Status:    status,
		Timestamp: ts,
	}, nil
}

// decodeReactions reads the embedded reactions map of a message document.
// Malformed entries are skipped, not errors. An entry with an empty emoji is
// a removal and is kept so the merge can apply it.
func decodeReactions(chatID, messageID string, data map[string]any) []store.Reaction {
	raw, ok := data["reactions"].(map[string]any)
	if !ok {
		return nil
	}
	var out []store.Reaction
	for userID, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		emoji := decodeString(entry, "emoji")
		ts, _ := decodeInt64(entry, "timestamp")
		out = append(out, store.Reaction{
			ChatID:    chatID,
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			Timestamp: ts,
		})
	}
	return out
}

// decodeReadStatuses reads the embedded read_status map of a chat document.
func decodeReadStatuses(chatID string, data map[string]any) []store.UserReadStatus {
	raw, ok := data["read_status"].(map[string]any)
	if !ok {
		return nil
	}
	var out []store.UserReadStatus
	for userID, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		entityID := decodeString(entry, "entity_id")
		readAt, ok := decodeInt64(entry, "read_at")
		if entityID == "" || !ok {
			continue
		}
		out = append(out, store.UserReadStatus{
			ChatID:           chatID,
			UserID:           userID,
			LastReadEntityID: entityID,
			LastReadAt:       readAt,
		})
	}
	return out
}

func decodeChat(id string, data map[string]any) (*store.Chat, error) {
	if id == "" {
		return nil, &DecodeError{Collection: "chats", ID: id, Field: "_id", Reason: "missing"}
	}
	isGroup, _ := data["is_group"].(bool)
	lastAt, _ := decodeInt64(data, "last_message_at")
	return &store.Chat{
		ID:                 id,
		Name:               decodeString(data, "name"),
		IsGroup:            isGroup,
		LastMessageAt:      lastAt,
		LastMessagePreview: decodeString(data, "last_message_preview"),
	}, nil
}

func decodeUser(id string, data map[string]any) (*store.User, error) {
	if id == "" {
		return nil, &DecodeError{Collection: "users", ID: id, Field: "_id", Reason: "missing"}
	}
	return &store.User{
		ID:        id,
		Name:      decodeString(data, "name"),
		AvatarURL: decodeString(data, "avatar_url"),
	}, nil
}
