package reconcile

import (
	"time"

	"github.com/lucasvidela/chatsync/internal/bus"
	"github.com/lucasvidela/chatsync/internal/store"
	"go.uber.org/zap"
)

// Reactions enforces at most one live reaction per (message, user).
type Reactions struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewReactions creates the reconciler.
func NewReactions(db *store.DB, b *bus.Bus, logger *zap.Logger) *Reactions {
	return &Reactions{db: db, bus: b, logger: logger}
}

// Set installs emoji as the user's reaction on a message, replacing any prior
// one atomically. An empty emoji removes the reaction. Both directions are
// last-writer-wins on ts: an incoming reaction or removal older than the
// stored reaction is dropped. Returns whether the state changed.
func (r *Reactions) Set(chatID, messageID, userID, emoji string, ts int64) (bool, error) {
	if emoji == "" {
		removed, err := r.db.RemoveReactionBefore(messageID, userID, ts)
		if err != nil {
			return false, err
		}
		if removed && r.bus != nil {
			r.bus.Publish(bus.Event{
				Kind:      "reaction.removed",
				Timestamp: time.Now(),
				Payload: map[string]string{
					"message_id": messageID,
					"user_id":    userID,
				},
			})
		}
		return removed, nil
	}

	applied, err := r.db.ReplaceReaction(&store.Reaction{
		ChatID:    chatID,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		Timestamp: ts,
	})
	if err != nil {
		return false, err
	}
	if applied && r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind:      "reaction.updated",
			Timestamp: time.Now(),
			Payload: map[string]string{
				"chat_id":    chatID,
				"message_id": messageID,
				"user_id":    userID,
			},
		})
	}
	return applied, nil
}

// Remove deletes the user's reaction on a message. Removing a reaction that
// does not exist is a success.
func (r *Reactions) Remove(messageID, userID string) error {
	if err := r.db.RemoveReaction(messageID, userID); err != nil {
		return err
	}
	if r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind:      "reaction.removed",
			Timestamp: time.Now(),
			Payload: map[string]string{
				"message_id": messageID,
				"user_id":    userID,
			},
		})
	}
	return nil
}
