// Package chat is the library surface consumers talk to. Every operation is
// write-ahead: it lands in the local store synchronously and never blocks the
// caller on the network. Remote writes happen opportunistically when the
// monitor reports online, and otherwise ride the sync engine's drain loop.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucasvidela/chatsync/internal/bus"
	"github.com/lucasvidela/chatsync/internal/media"
	"github.com/lucasvidela/chatsync/internal/netmon"
	"github.com/lucasvidela/chatsync/internal/reconcile"
	"github.com/lucasvidela/chatsync/internal/remote"
	"github.com/lucasvidela/chatsync/internal/store"
)

const snapshotLimit = 50

// Trigger wakes the background drain loop after an operation was queued.
type Trigger interface {
	Trigger()
}

// Service is the message facade for one local user.
type Service struct {
	db        *store.DB
	remote    remote.Store
	monitor   netmon.Monitor
	receipts  *reconcile.ReadReceipts
	reactions *reconcile.Reactions
	trigger   Trigger
	bus       *bus.Bus
	logger    *zap.Logger
	selfID    string
	timeout   time.Duration
}

// NewService creates the facade. selfID identifies the local user; it is the
// sender of reactions and read receipts produced here. trigger may be nil.
func NewService(db *store.DB, r remote.Store, monitor netmon.Monitor, receipts *reconcile.ReadReceipts, reactions *reconcile.Reactions, trigger Trigger, b *bus.Bus, logger *zap.Logger, selfID string) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:        db,
		remote:    r,
		monitor:   monitor,
		receipts:  receipts,
		reactions: reactions,
		trigger:   trigger,
		bus:       b,
		logger:    logger,
		selfID:    selfID,
		timeout:   10 * time.Second,
	}
}

// Send writes the message locally under a temporary id and returns it
// immediately. When the monitor reports online it also attempts one immediate
// remote write; on success the message comes back already sent under its
// canonical id. On any failure, including being offline, the message stays
// pending and a queued operation hands it to the drain loop.
func (s *Service) Send(ctx context.Context, chatID, senderID, text string) (*store.Message, error) {
	now := time.Now().UnixMilli()
	m := &store.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		Status:    store.StatusPending,
		Timestamp: now,
	}
	if err := s.db.UpsertMessage(m); err != nil {
		return nil, err
	}
	s.touchChat(chatID, now, text)

	if s.monitor.Current().Online() {
		remoteID, err := s.createRemote(ctx, m)
		if err == nil {
			if rerr := s.db.ReplaceMessageID(m.ID, remoteID, store.StatusSent); rerr == nil {
				m.ID = remoteID
				m.Status = store.StatusSent
				s.publish("message.sent", map[string]string{"chat_id": chatID, "message_id": remoteID})
				return m, nil
			}
			// The remote write landed but the local swap did not. Fall through
			// to queueing: the drain recovers the existing document by
			// client_id instead of creating a second one.
		} else {
			s.logger.Debug("immediate send failed, queueing",
				zap.Error(err), zap.String("message_id", m.ID))
		}
	}

	if err := s.enqueueSend(m.ID, chatID, now); err != nil {
		return nil, err
	}
	s.wake()
	return m, nil
}

// SendAttachment writes a message carrying a local media file. Attachments
// always take the queued path: the upload belongs to the drain loop, not the
// caller.
func (s *Service) SendAttachment(chatID, senderID, caption, imagePath string) (*store.Message, error) {
	now := time.Now().UnixMilli()
	m := &store.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      caption,
		ImageRef:  media.LocalRef(imagePath),
		Status:    store.StatusPending,
		Timestamp: now,
	}
	if err := s.db.UpsertMessage(m); err != nil {
		return nil, err
	}
	s.touchChat(chatID, now, caption)
	if err := s.enqueueSend(m.ID, chatID, now); err != nil {
		return nil, err
	}
	s.wake()
	return m, nil
}

// GetCached returns the chat's newest message page from the local store,
// without touching the network.
func (s *Service) GetCached(chatID string) ([]store.Message, error) {
	return s.db.ListMessages(chatID, 0, snapshotLimit)
}

// Chats returns the chat list ordered by recency.
func (s *Service) Chats(limit, offset int) ([]store.Chat, error) {
	return s.db.ListChats(limit, offset)
}

// Reactions returns the live reactions on a message.
func (s *Service) Reactions(messageID string) ([]store.Reaction, error) {
	return s.db.ListReactions(messageID)
}

// Receipts returns the read registers of a chat. Use
// reconcile.ReceiptVisible to decide which render under which message.
func (s *Service) Receipts(chatID string) ([]store.UserReadStatus, error) {
	return s.db.ListReadStatuses(chatID)
}

// RefreshUsers pulls the user directory from the remote store into the local
// cache. Documents that fail to decode are skipped.
func (s *Service) RefreshUsers(ctx context.Context) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	docs, err := s.remote.Query(cctx, remote.CollectionUsers, remote.Predicate{})
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, doc := range docs {
		id, _ := doc["_id"].(string)
		u, err := decodeUser(id, doc)
		if err != nil {
			s.logger.Warn("skipping undecodable user document", zap.Error(err))
			continue
		}
		if err := s.db.UpsertUser(u); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// Subscribe emits the current local snapshot for the chat synchronously, then
// forwards every remote change after merging it through the local store, so
// the caller only ever observes store state. The returned cancel detaches the
// remote listener; it is safe to call more than once. When offline at call
// time only the snapshot is emitted.
func (s *Service) Subscribe(ctx context.Context, chatID string, fn func([]store.Message)) (func(), error) {
	snapshot, err := s.db.ListMessages(chatID, 0, snapshotLimit)
	if err != nil {
		return nil, err
	}
	fn(snapshot)

	if !s.monitor.Current().Online() {
		return func() {}, nil
	}

	return s.remote.Subscribe(ctx, remote.CollectionMessages,
		remote.Predicate{Field: "chat_id", Equals: chatID},
		func(ch remote.Change) {
			if err := s.mergeMessage(ch); err != nil {
				s.logger.Warn("dropping unmergeable message change",
					zap.Error(err), zap.String("id", ch.ID))
				return
			}
			msgs, err := s.db.ListMessages(chatID, 0, snapshotLimit)
			if err != nil {
				s.logger.Error("failed to reload chat after merge", zap.Error(err))
				return
			}
			fn(msgs)
		})
}

// SubscribeChats is Subscribe for the chat list: snapshot first, then remote
// chat documents merged through the store. Read registers embedded in chat
// documents are applied through the receipt reconciler, so stale remote
// positions never regress local state.
func (s *Service) SubscribeChats(ctx context.Context, fn func([]store.Chat)) (func(), error) {
	snapshot, err := s.db.ListChats(snapshotLimit, 0)
	if err != nil {
		return nil, err
	}
	fn(snapshot)

	if !s.monitor.Current().Online() {
		return func() {}, nil
	}

	return s.remote.Subscribe(ctx, remote.CollectionChats, remote.Predicate{},
		func(ch remote.Change) {
			if err := s.mergeChat(ch); err != nil {
				s.logger.Warn("dropping unmergeable chat change",
					zap.Error(err), zap.String("id", ch.ID))
				return
			}
			chats, err := s.db.ListChats(snapshotLimit, 0)
			if err != nil {
				s.logger.Error("failed to reload chat list after merge", zap.Error(err))
				return
			}
			fn(chats)
		})
}

// MarkRead advances the local user's read position to entityID. A stale
// advance is a silent no-op. An applied advance resets the unread counter,
// queues the receipt, and when online attempts one optimistic remote write.
func (s *Service) MarkRead(ctx context.Context, chatID, entityID string) error {
	now := time.Now().UnixMilli()
	applied, err := s.receipts.Advance(chatID, s.selfID, entityID, now)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	if err := s.db.ResetUnread(chatID); err != nil {
		s.logger.Warn("failed to reset unread count", zap.Error(err), zap.String("chat_id", chatID))
	}

	op := &store.PendingReadReceipt{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		UserID:    s.selfID,
		EntityID:  entityID,
		ReadAt:    now,
		CreatedAt: now,
	}
	if err := s.db.EnqueueReadReceipt(op); err != nil {
		return err
	}

	if s.monitor.Current().Online() {
		patch := map[string]any{
			"read_status." + s.selfID: map[string]any{"entity_id": entityID, "read_at": now},
		}
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.remote.Update(cctx, remote.CollectionChats, chatID, patch)
		cancel()
		if err == nil {
			return s.db.RemoveReadReceiptOp(op.ID)
		}
	}
	s.wake()
	return nil
}

// React sets the local user's reaction on a message; an empty emoji removes
// it. The change applies locally first, then queues for the drain loop, with
// one optimistic remote write when online.
func (s *Service) React(ctx context.Context, chatID, messageID, emoji string) error {
	now := time.Now().UnixMilli()
	if _, err := s.reactions.Set(chatID, messageID, s.selfID, emoji, now); err != nil {
		return err
	}

	op := &store.PendingReaction{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		MessageID: messageID,
		UserID:    s.selfID,
		Emoji:     emoji,
		Timestamp: now,
		CreatedAt: now,
	}
	if err := s.db.EnqueueReaction(op); err != nil {
		return err
	}

	if s.monitor.Current().Online() {
		patch := map[string]any{
			"reactions." + s.selfID: map[string]any{"user_id": s.selfID, "emoji": emoji, "timestamp": now},
		}
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.remote.Update(cctx, remote.CollectionMessages, messageID, patch)
		cancel()
		if err == nil {
			return s.db.RemoveReactionOp(op.ID)
		}
	}
	s.wake()
	return nil
}

// mergeMessage applies one remote message change to the local store. A
// document whose client_id matches a local pending message is the remote
// confirmation of our own send: the local row migrates onto the canonical id
// instead of being duplicated.
func (s *Service) mergeMessage(ch remote.Change) error {
	m, err := decodeMessage(ch.ID, ch.Data)
	if err != nil {
		return err
	}

	existing, err := s.db.GetMessage(m.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		if clientID := decodeString(ch.Data, "client_id"); clientID != "" {
			local, err := s.db.GetMessage(clientID)
			if err != nil {
				return err
			}
			if local != nil {
				if err := s.db.ReplaceMessageID(clientID, m.ID, m.Status); err != nil {
					return err
				}
				existing = local
			}
		}
	}

	// Remote confirmation wins over local pending state.
	if err := s.db.UpsertMessage(m); err != nil {
		return err
	}

	if existing == nil {
		s.touchChat(m.ChatID, m.Timestamp, m.Text)
		if m.SenderID != s.selfID {
			if err := s.db.IncrementUnread(m.ChatID); err != nil {
				s.logger.Warn("failed to bump unread count", zap.Error(err), zap.String("chat_id", m.ChatID))
			}
		}
	}

	// Set handles empty emoji as a removal; both directions are LWW on the
	// entry's timestamp, so a stale change-stream entry never beats a newer
	// local reaction.
	for _, r := range decodeReactions(m.ChatID, m.ID, ch.Data) {
		if _, err := s.reactions.Set(r.ChatID, r.MessageID, r.UserID, r.Emoji, r.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) mergeChat(ch remote.Change) error {
	c, err := decodeChat(ch.ID, ch.Data)
	if err != nil {
		return err
	}
	if err := s.db.UpsertChat(c); err != nil {
		return err
	}
	for _, rs := range decodeReadStatuses(c.ID, ch.Data) {
		if _, err := s.receipts.Advance(rs.ChatID, rs.UserID, rs.LastReadEntityID, rs.LastReadAt); err != nil {
			return err
		}
	}
	return nil
}

// createRemote makes a single remote write attempt for msg.
func (s *Service) createRemote(ctx context.Context, msg *store.Message) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.remote.Create(cctx, remote.CollectionMessages, map[string]any{
		"client_id": msg.ID,
		"chat_id":   msg.ChatID,
		"sender_id": msg.SenderID,
		"text":      msg.Text,
		"image_ref": msg.ImageRef,
		"audio_ref": msg.AudioRef,
		"timestamp": msg.Timestamp,
		"status":    store.StatusSent,
	})
}

func (s *Service) enqueueSend(messageID, chatID string, now int64) error {
	return s.db.EnqueueOutboundMessage(&store.PendingMessage{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		MessageID: messageID,
		CreatedAt: now,
	})
}

func (s *Service) touchChat(chatID string, at int64, preview string) {
	if err := s.db.UpsertChat(&store.Chat{
		ID:                 chatID,
		LastMessageAt:      at,
		LastMessagePreview: preview,
	}); err != nil {
		s.logger.Warn("failed to update chat preview", zap.Error(err), zap.String("chat_id", chatID))
	}
}

func (s *Service) wake() {
	if s.trigger != nil {
		s.trigger.Trigger()
	}
}

func (s *Service) publish(kind string, payload map[string]string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
