// Package sync implements the background drain loop that reconciles the
// local write-ahead store with the remote document store. One drain pass
// flushes the three pending-operation queues in per-chat FIFO order, with
// bounded retries and transient/rejected failure classification.
package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/lucasvidela/chatsync/internal/bus"
	"github.com/lucasvidela/chatsync/internal/media"
	"github.com/lucasvidela/chatsync/internal/netmon"
	"github.com/lucasvidela/chatsync/internal/remote"
	"github.com/lucasvidela/chatsync/internal/store"
	"go.uber.org/zap"
)

// Options tunes the drain loop.
type Options struct {
	DrainInterval time.Duration // ticker period between passes
	RetryLimit    int           // attempts per operation per pass
	CallTimeout   time.Duration // per remote call
}

func (o *Options) defaults() {
	if o.DrainInterval <= 0 {
		o.DrainInterval = 30 * time.Second
	}
	if o.RetryLimit <= 0 {
		o.RetryLimit = 3
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
}

// Engine drains the pending queues against the remote store. A single worker
// runs passes; triggers (timer, reconnect, manual) arriving mid-pass coalesce
// into one follow-up pass instead of running concurrently.
type Engine struct {
	db       *store.DB
	remote   remote.Store
	monitor  netmon.Monitor
	uploader media.Uploader
	bus      *bus.Bus
	logger   *zap.Logger
	machine  *Machine
	opts     Options

	mu       stdsync.Mutex
	draining bool
	rerun    bool

	wake   chan struct{}
	cancel context.CancelFunc
}

// NewEngine creates a new sync engine. uploader may be nil when no media
// backend is configured; operations carrying local media then stay queued.
func NewEngine(db *store.DB, r remote.Store, monitor netmon.Monitor, uploader media.Uploader, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	opts.defaults()
	if uploader == nil {
		uploader = media.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:       db,
		remote:   r,
		monitor:  monitor,
		uploader: uploader,
		bus:      b,
		logger:   logger,
		machine:  NewMachine(b),
		opts:     opts,
		wake:     make(chan struct{}, 1),
	}
}

// State returns the engine's current drain state.
func (e *Engine) State() State {
	return e.machine.Current()
}

// Start launches the background worker. It drains on a recurring timer, on
// every monitor transition into online, and on Trigger.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	states, unsub := e.monitor.Subscribe(16)
	go func() {
		defer unsub()
		ticker := time.NewTicker(e.opts.DrainInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.drain(ctx)
			case s := <-states:
				if s.Online() {
					e.drain(ctx)
				}
			case <-e.wake:
				e.drain(ctx)
			case <-ctx.Done():
				_ = e.machine.Transition(Stopped)
				return
			}
		}
	}()
}

// Stop stops the worker. An in-flight pass finishes its current operation.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Trigger requests a drain pass. Non-blocking; a pass already in flight
// absorbs the request as a rerun.
func (e *Engine) Trigger() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// DrainNow runs a pass synchronously. Used by tests and by callers that need
// a completed pass before proceeding. Respects the same mutual exclusion as
// the background worker.
func (e *Engine) DrainNow(ctx context.Context) {
	e.drain(ctx)
}

func (e *Engine) drain(ctx context.Context) {
	e.mu.Lock()
	if e.draining {
		// Coalesce: run once more after the current pass.
		e.rerun = true
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()

	if err := e.machine.Transition(Draining); err != nil {
		// Stopped engines refuse further passes, DrainNow included.
		e.mu.Lock()
		e.draining = false
		e.rerun = false
		e.mu.Unlock()
		return
	}
	for {
		e.drainOnce(ctx)

		e.mu.Lock()
		if e.rerun && ctx.Err() == nil {
			e.rerun = false
			e.mu.Unlock()
			continue
		}
		e.draining = false
		e.mu.Unlock()
		break
	}
	_ = e.machine.Transition(Idle)
}

func (e *Engine) drainOnce(ctx context.Context) {
	if !e.monitor.Current().Online() {
		// Offline passes make no attempts, so nothing consumes retry budget
		// during routine connectivity gaps.
		return
	}

	e.bus.Publish(bus.Event{Kind: "sync.drain_started", Timestamp: time.Now()})
	start := time.Now()

	sent := e.drainOutbound(ctx)
	reactions := e.drainReactions(ctx)
	receipts := e.drainReceipts(ctx)

	e.logger.Info("drain pass finished",
		zap.Int("messages", sent),
		zap.Int("reactions", reactions),
		zap.Int("receipts", receipts),
		zap.Duration("took", time.Since(start)))
	e.bus.Publish(bus.Event{
		Kind:      "sync.drain_finished",
		Timestamp: time.Now(),
		Payload: map[string]int{
			"messages":  sent,
			"reactions": reactions,
			"receipts":  receipts,
		},
	})
}

// withRetry runs fn with a per-call timeout up to the per-pass retry budget.
// It stops early on success, rejection, or parent cancellation.
func (e *Engine) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= e.opts.RetryLimit; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil || remote.IsRejected(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (e *Engine) drainOutbound(ctx context.Context) int {
	ops, err := e.db.PendingOutboundMessages()
	if err != nil {
		e.logger.Error("failed to read outbound queue", zap.Error(err))
		return 0
	}

	confirmed := 0
	blocked := make(map[string]bool)
	for _, op := range ops {
		if ctx.Err() != nil {
			return confirmed
		}
		// A stuck chat must not stall the others.
		if blocked[op.ChatID] {
			continue
		}

		msg, err := e.db.GetMessage(op.MessageID)
		if err != nil {
			e.logger.Error("failed to load queued message", zap.Error(err), zap.String("op_id", op.ID))
			blocked[op.ChatID] = true
			continue
		}
		if msg == nil {
			// The message was deleted locally; the op is moot.
			_ = e.db.RemoveOutboundMessage(op.ID)
			continue
		}

		if !e.resolveMedia(ctx, msg) {
			blocked[op.ChatID] = true
			continue
		}

		remoteID, err := e.createRemoteMessage(ctx, op.MessageID, msg)
		switch {
		case err == nil:
			if err := e.db.ReplaceMessageID(op.MessageID, remoteID, store.StatusSent); err != nil {
				e.logger.Error("failed to apply remote id", zap.Error(err), zap.String("op_id", op.ID))
				blocked[op.ChatID] = true
				continue
			}
			if err := e.db.RemoveOutboundMessage(op.ID); err != nil {
				e.logger.Error("failed to dequeue send op", zap.Error(err), zap.String("op_id", op.ID))
				continue
			}
			confirmed++
			e.bus.Publish(bus.Event{
				Kind:      "message.sent",
				Timestamp: time.Now(),
				Payload:   map[string]string{"chat_id": op.ChatID, "message_id": remoteID},
			})

		case remote.IsRejected(err):
			e.logger.Warn("message send rejected", zap.Error(err), zap.String("message_id", op.MessageID))
			e.failMessage(op.ChatID, op.ID, op.MessageID)
			blocked[op.ChatID] = true

		default:
			// Transient and the pass budget is spent. Sends are not retried
			// forever: surface the failure instead of losing the message.
			e.logger.Warn("message send exhausted retry budget", zap.Error(err), zap.String("message_id", op.MessageID))
			e.failMessage(op.ChatID, op.ID, op.MessageID)
			blocked[op.ChatID] = true
		}
	}
	return confirmed
}

// createRemoteMessage writes msg to the remote store and returns its
// canonical id. Each attempt first checks whether a previous attempt's ack
// was lost, so repeated drains can never produce two remote documents for
// one client id.
func (e *Engine) createRemoteMessage(ctx context.Context, clientID string, msg *store.Message) (string, error) {
	doc := map[string]any{
		"client_id": clientID,
		"chat_id":   msg.ChatID,
		"sender_id": msg.SenderID,
		"text":      msg.Text,
		"image_ref": msg.ImageRef,
		"audio_ref": msg.AudioRef,
		"timestamp": msg.Timestamp,
		"status":    store.StatusSent,
	}

	var remoteID string
	err := e.withRetry(ctx, func(c context.Context) error {
		existing, qerr := e.remote.Query(c, remote.CollectionMessages,
			remote.Predicate{Field: "client_id", Equals: clientID})
		if qerr == nil && len(existing) > 0 {
			if id, ok := existing[0]["_id"].(string); ok && id != "" {
				remoteID = id
				return nil
			}
		}
		id, cerr := e.remote.Create(c, remote.CollectionMessages, doc)
		if cerr != nil {
			return cerr
		}
		remoteID = id
		return nil
	})
	return remoteID, err
}

func (e *Engine) failMessage(chatID, opID, messageID string) {
	if err := e.db.SetMessageStatus(messageID, store.StatusFailed); err != nil {
		e.logger.Error("failed to mark message failed", zap.Error(err), zap.String("message_id", messageID))
	}
	if err := e.db.RemoveOutboundMessage(opID); err != nil {
		e.logger.Error("failed to dequeue failed send op", zap.Error(err), zap.String("op_id", opID))
	}
	e.bus.Publish(bus.Event{
		Kind:      "message.failed",
		Timestamp: time.Now(),
		Payload:   map[string]string{"chat_id": chatID, "message_id": messageID},
	})
}

// resolveMedia uploads any local file refs on msg and persists the resulting
// URLs. Returns false when an upload failed and the message is not yet
// syncable.
func (e *Engine) resolveMedia(ctx context.Context, msg *store.Message) bool {
	changed := false
	for _, ref := range []*string{&msg.ImageRef, &msg.AudioRef} {
		if !media.IsLocalRef(*ref) {
			continue
		}
		url, err := e.uploader.Upload(ctx, media.LocalPath(*ref))
		if err != nil {
			e.logger.Warn("media upload failed, message stays queued",
				zap.Error(err), zap.String("message_id", msg.ID))
			return false
		}
		*ref = url
		changed = true
	}
	if changed {
		if err := e.db.UpsertMessage(msg); err != nil {
			e.logger.Error("failed to persist media url", zap.Error(err), zap.String("message_id", msg.ID))
			return false
		}
	}
	return true
}

func (e *Engine) drainReactions(ctx context.Context) int {
	ops, err := e.db.PendingReactions()
	if err != nil {
		e.logger.Error("failed to read reaction queue", zap.Error(err))
		return 0
	}

	confirmed := 0
	blocked := make(map[string]bool)
	for _, op := range ops {
		if ctx.Err() != nil {
			return confirmed
		}
		if blocked[op.ChatID] {
			continue
		}

		patch := map[string]any{
			"reactions." + op.UserID: map[string]any{
				"user_id":   op.UserID,
				"emoji":     op.Emoji,
				"timestamp": op.Timestamp,
			},
		}
		err := e.withRetry(ctx, func(c context.Context) error {
			return e.remote.Update(c, remote.CollectionMessages, op.MessageID, patch)
		})
		switch {
		case err == nil:
			if err := e.db.RemoveReactionOp(op.ID); err != nil {
				e.logger.Error("failed to dequeue reaction op", zap.Error(err), zap.String("op_id", op.ID))
				continue
			}
			confirmed++

		case remote.IsRejected(err):
			// The target message is gone remotely; the local reaction is moot.
			e.logger.Warn("reaction rejected", zap.Error(err), zap.String("message_id", op.MessageID))
			_ = e.db.RemoveReaction(op.MessageID, op.UserID)
			_ = e.db.RemoveReactionOp(op.ID)

		default:
			// Leave queued; reactions are idempotent LWW writes, the next
			// drain retries from scratch.
			blocked[op.ChatID] = true
		}
	}
	return confirmed
}

func (e *Engine) drainReceipts(ctx context.Context) int {
	ops, err := e.db.PendingReadReceipts()
	if err != nil {
		e.logger.Error("failed to read receipt queue", zap.Error(err))
		return 0
	}

	confirmed := 0
	blocked := make(map[string]bool)
	for _, op := range ops {
		if ctx.Err() != nil {
			return confirmed
		}
		if blocked[op.ChatID] {
			continue
		}

		patch := map[string]any{
			"read_status." + op.UserID: map[string]any{
				"entity_id": op.EntityID,
				"read_at":   op.ReadAt,
			},
		}
		err := e.withRetry(ctx, func(c context.Context) error {
			return e.remote.Update(c, remote.CollectionChats, op.ChatID, patch)
		})
		switch {
		case err == nil:
			if err := e.db.RemoveReadReceiptOp(op.ID); err != nil {
				e.logger.Error("failed to dequeue receipt op", zap.Error(err), zap.String("op_id", op.ID))
				continue
			}
			confirmed++

		case remote.IsRejected(err):
			e.logger.Warn("read receipt rejected", zap.Error(err), zap.String("chat_id", op.ChatID))
			_ = e.db.RemoveReadReceiptOp(op.ID)

		default:
			blocked[op.ChatID] = true
		}
	}
	return confirmed
}
