// Package reconcile holds the two domain-specific merge rules applied when
// local and remote views of an entity disagree: the monotonic read-position
// register and the single-reaction-per-user rule. Both treat a losing update
// as expected steady-state behavior, never as an error.
package reconcile

import (
	"time"

	"github.com/lucasvidela/chatsync/internal/bus"
	"github.com/lucasvidela/chatsync/internal/store"
	"go.uber.org/zap"
)

// ReadReceipts applies read-position advances under last-writer-wins
// semantics keyed by timestamp, not arrival order.
type ReadReceipts struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewReadReceipts creates the reconciler.
func NewReadReceipts(db *store.DB, b *bus.Bus, logger *zap.Logger) *ReadReceipts {
	return &ReadReceipts{db: db, bus: b, logger: logger}
}

// Advance moves the (chat, user) read register to entityID at time `at` if
// and only if `at` is strictly newer than the stored position. A stale or
// duplicate advance returns applied=false with no error: late out-of-order
// delivery is harmless.
func (r *ReadReceipts) Advance(chatID, userID, entityID string, at int64) (bool, error) {
	applied, err := r.db.AdvanceReadStatus(chatID, userID, entityID, at)
	if err != nil {
		return false, err
	}
	if !applied {
		if r.logger != nil {
			r.logger.Debug("stale read receipt dropped",
				zap.String("chat_id", chatID),
				zap.String("user_id", userID),
				zap.Int64("at", at))
		}
		return false, nil
	}
	if r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind:      "receipt.advanced",
			Timestamp: time.Now(),
			Payload: map[string]string{
				"chat_id": chatID,
				"user_id": userID,
			},
		})
	}
	return true, nil
}

// ReceiptVisible reports whether a read receipt should render under msg.
// It does iff the receipt points at msg and the reading user has sent no
// message in the chat with a timestamp after the one they last read. A user
// who has since written has implicitly moved past their marker; showing the
// stale receipt would misrepresent the conversation. O(len(chatMsgs)), which
// is fine because chats are paginated.
func ReceiptVisible(rs store.UserReadStatus, msg store.Message, chatMsgs []store.Message) bool {
	if rs.LastReadEntityID != msg.ID {
		return false
	}
	for _, m := range chatMsgs {
		if m.SenderID == rs.UserID && m.Timestamp > msg.Timestamp {
			return false
		}
	}
	return true
}
