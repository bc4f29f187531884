package sync

import (
	"context"
	"errors"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/lucasvidela/chatsync/internal/bus"
	"github.com/lucasvidela/chatsync/internal/netmon"
	"github.com/lucasvidela/chatsync/internal/remote"
	"github.com/lucasvidela/chatsync/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeRemote is an in-memory remote.Store with scripted failures. Patches are
// stored under their flattened field path, mirroring $set semantics closely
// enough for the engine's assertions.
type fakeRemote struct {
	mu      stdsync.Mutex
	docs    map[string]map[string]map[string]any // collection -> id -> doc
	creates []string                             // ids in creation order
	updates int

	failCreates   int           // fail this many Create calls with a transient error
	rejectCreates bool          // reject every Create
	failUpdates   int           // fail this many Update calls with a transient error
	nextID        int           // deterministic server ids
	gate          chan struct{} // when set, Create blocks until the gate closes

	inFlight    int
	maxInFlight int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: map[string]map[string]map[string]any{}}
}

func (f *fakeRemote) collection(name string) map[string]map[string]any {
	if f.docs[name] == nil {
		f.docs[name] = map[string]map[string]any{}
	}
	return f.docs[name]
}

func (f *fakeRemote) seed(collection, id string, doc map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc["_id"] = id
	f.collection(collection)[id] = doc
}

func (f *fakeRemote) Create(_ context.Context, collection string, data map[string]any) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer func() { f.inFlight--; f.mu.Unlock() }()

	if f.rejectCreates {
		return "", remote.Rejected("chat deleted", nil)
	}
	if f.failCreates > 0 {
		f.failCreates--
		return "", remote.Transient(errors.New("connection reset"))
	}
	f.nextID++
	id := "srv-" + string(rune('0'+f.nextID))
	doc := map[string]any{"_id": id}
	for k, v := range data {
		doc[k] = v
	}
	f.collection(collection)[id] = doc
	f.creates = append(f.creates, id)
	return id, nil
}

func (f *fakeRemote) Update(_ context.Context, collection, id string, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failUpdates > 0 {
		f.failUpdates--
		return remote.Transient(errors.New("timeout"))
	}
	doc, ok := f.collection(collection)[id]
	if !ok {
		return remote.Rejected(collection+"/"+id+" does not exist", nil)
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (f *fakeRemote) Get(_ context.Context, collection, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.collection(collection)[id]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

func (f *fakeRemote) Query(_ context.Context, collection string, pred remote.Predicate) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, doc := range f.collection(collection) {
		if pred.Field == "" || doc[pred.Field] == pred.Equals {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeRemote) Subscribe(context.Context, string, remote.Predicate, func(remote.Change)) (func(), error) {
	return func() {}, nil
}

func (f *fakeRemote) docCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collection(collection))
}

// fakeUploader resolves local refs to deterministic URLs, or fails.
type fakeUploader struct {
	err     error
	uploads int
}

func (u *fakeUploader) Upload(_ context.Context, path string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.uploads++
	return "https://cdn.test/" + filepath.Base(path), nil
}

func testEngine(t *testing.T, db *store.DB, r remote.Store, m netmon.Monitor) *Engine {
	t.Helper()
	return NewEngine(db, r, m, &fakeUploader{}, bus.New(), nil, Options{
		DrainInterval: time.Hour, // tests drive passes explicitly
		CallTimeout:   time.Second,
	})
}

func queueMessage(t *testing.T, db *store.DB, id, chatID, text string, ts int64) {
	t.Helper()
	if err := db.UpsertMessage(&store.Message{
		ID: id, ChatID: chatID, SenderID: "me", Text: text,
		Status: store.StatusPending, Timestamp: ts,
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueOutboundMessage(&store.PendingMessage{
		ID: "op-" + id, ChatID: chatID, MessageID: id, CreatedAt: ts,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestDrainOfflineMakesNoAttempts(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	mon := netmon.NewManual(netmon.State{}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())

	if fr.docCount(remote.CollectionMessages) != 0 {
		t.Error("offline drain wrote to the remote store")
	}
	ops, _ := db.PendingOutboundMessages()
	if len(ops) != 1 {
		t.Errorf("got %d queued ops, want 1 (untouched)", len(ops))
	}
	m, _ := db.GetMessage("local-1")
	if m.Status != store.StatusPending {
		t.Errorf("status = %q, want pending", m.Status)
	}
}

// TestDrainSendsOfflineBacklogInOrder is the core offline-durability scenario:
// three messages composed offline land remotely exactly once, in timestamp
// order, with local ids migrated and statuses sent.
func TestDrainSendsOfflineBacklogInOrder(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	mon := netmon.NewManual(netmon.State{}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "one", 1000)
	queueMessage(t, db, "local-2", "c1", "two", 2000)
	queueMessage(t, db, "local-3", "c1", "three", 3000)

	mon.Set(netmon.State{Connected: true, Reachability: netmon.ReachYes})
	e.DrainNow(context.Background())

	if got := fr.docCount(remote.CollectionMessages); got != 3 {
		t.Fatalf("remote has %d documents, want 3", got)
	}
	// Creation order follows queue order, which follows timestamps.
	var lastTs int64
	for _, id := range fr.creates {
		doc, _ := fr.Get(context.Background(), remote.CollectionMessages, id)
		ts := doc["timestamp"].(int64)
		if ts < lastTs {
			t.Errorf("remote creation out of timestamp order: %d after %d", ts, lastTs)
		}
		lastTs = ts
	}

	ops, _ := db.PendingOutboundMessages()
	if len(ops) != 0 {
		t.Errorf("got %d queued ops after drain, want 0", len(ops))
	}
	msgs, _ := db.ListMessages("c1", 0, 10)
	if len(msgs) != 3 {
		t.Fatalf("got %d local messages, want 3", len(msgs))
	}
	for _, m := range msgs {
		if m.Status != store.StatusSent {
			t.Errorf("message %s status = %q, want sent", m.ID, m.Status)
		}
		if m.ID == "local-1" || m.ID == "local-2" || m.ID == "local-3" {
			t.Errorf("local id %s not migrated to canonical id", m.ID)
		}
	}
}

// TestDrainRecoversLostAck verifies at-most-one-confirmed: when a previous
// attempt's document exists remotely but the ack never landed, the next drain
// adopts it instead of creating a second document.
func TestDrainRecoversLostAck(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.seed(remote.CollectionMessages, "srv-9", map[string]any{
		"client_id": "local-1", "chat_id": "c1", "text": "hello",
	})
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())

	if got := fr.docCount(remote.CollectionMessages); got != 1 {
		t.Errorf("remote has %d documents, want 1 (no duplicate)", got)
	}
	if len(fr.creates) != 0 {
		t.Errorf("drain issued %d creates, want 0 (adopted existing doc)", len(fr.creates))
	}
	m, _ := db.GetMessage("srv-9")
	if m == nil || m.Status != store.StatusSent {
		t.Errorf("message not migrated onto recovered id: %+v", m)
	}
}

func TestDrainIdempotentReplay(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())
	before := fr.docCount(remote.CollectionMessages)

	// Replaying a pass over an empty queue must not write anything.
	e.DrainNow(context.Background())
	if got := fr.docCount(remote.CollectionMessages); got != before {
		t.Errorf("replay created documents: %d -> %d", before, got)
	}
	if len(fr.creates) != 1 {
		t.Errorf("got %d creates total, want 1", len(fr.creates))
	}
}

func TestDrainTransientThenSuccessWithinPass(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.failCreates = 1
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())

	if got := fr.docCount(remote.CollectionMessages); got != 1 {
		t.Errorf("remote has %d documents, want 1", got)
	}
	ops, _ := db.PendingOutboundMessages()
	if len(ops) != 0 {
		t.Errorf("got %d queued ops, want 0", len(ops))
	}
}

func TestDrainRetryBudgetExhaustedFailsSend(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.failCreates = 100 // every attempt fails transiently
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())

	// Failed sends surface as a terminal status, never silently vanish.
	m, _ := db.GetMessage("local-1")
	if m == nil {
		t.Fatal("message disappeared")
	}
	if m.Status != store.StatusFailed {
		t.Errorf("status = %q, want failed", m.Status)
	}
	ops, _ := db.PendingOutboundMessages()
	if len(ops) != 0 {
		t.Errorf("got %d queued ops, want 0 (failed sends are not retried forever)", len(ops))
	}
	if got := 100 - fr.failCreates; got != 3 {
		t.Errorf("made %d attempts, want 3 (bounded retry)", got)
	}
}

func TestDrainRejectedDropsImmediately(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.rejectCreates = true
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())

	m, _ := db.GetMessage("local-1")
	if m.Status != store.StatusFailed {
		t.Errorf("status = %q, want failed", m.Status)
	}
	ops, _ := db.PendingOutboundMessages()
	if len(ops) != 0 {
		t.Errorf("got %d queued ops, want 0 (rejections are terminal)", len(ops))
	}
}

func TestStuckMediaBlocksOnlyItsChat(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := NewEngine(db, fr, mon, &fakeUploader{err: errors.New("upload quota")}, bus.New(), nil, Options{
		DrainInterval: time.Hour,
		CallTimeout:   time.Second,
	})

	// Chat A: message with unresolved local media.
	if err := db.UpsertMessage(&store.Message{
		ID: "local-a", ChatID: "chatA", SenderID: "me",
		ImageRef: "file:///tmp/pic.png", Status: store.StatusPending, Timestamp: 1000,
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueOutboundMessage(&store.PendingMessage{ID: "op-a", ChatID: "chatA", MessageID: "local-a", CreatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	// Chat B: plain text.
	queueMessage(t, db, "local-b", "chatB", "hi", 2000)

	e.DrainNow(context.Background())

	// Chat B synced; chat A still queued, still pending.
	ops, _ := db.PendingOutboundMessages()
	if len(ops) != 1 || ops[0].ID != "op-a" {
		t.Errorf("queue = %+v, want only op-a remaining", ops)
	}
	ma, _ := db.GetMessage("local-a")
	if ma.Status != store.StatusPending {
		t.Errorf("chat A status = %q, want pending (stuck upload is not a failure)", ma.Status)
	}
	if fr.docCount(remote.CollectionMessages) != 1 {
		t.Errorf("remote has %d documents, want 1 (chat B only)", fr.docCount(remote.CollectionMessages))
	}
}

func TestMediaResolvedBeforeSend(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	up := &fakeUploader{}
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := NewEngine(db, fr, mon, up, bus.New(), nil, Options{DrainInterval: time.Hour, CallTimeout: time.Second})

	if err := db.UpsertMessage(&store.Message{
		ID: "local-1", ChatID: "c1", SenderID: "me",
		ImageRef: "file:///tmp/pic.png", Status: store.StatusPending, Timestamp: 1000,
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueOutboundMessage(&store.PendingMessage{ID: "op-1", ChatID: "c1", MessageID: "local-1", CreatedAt: 1000}); err != nil {
		t.Fatal(err)
	}

	e.DrainNow(context.Background())

	if up.uploads != 1 {
		t.Errorf("got %d uploads, want 1", up.uploads)
	}
	docs, _ := fr.Query(context.Background(), remote.CollectionMessages, remote.Predicate{Field: "client_id", Equals: "local-1"})
	if len(docs) != 1 {
		t.Fatalf("got %d remote documents, want 1", len(docs))
	}
	if ref := docs[0]["image_ref"]; ref != "https://cdn.test/pic.png" {
		t.Errorf("remote image_ref = %v, want resolved URL", ref)
	}
}

func TestReactionDrainLastWriteWins(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.seed(remote.CollectionMessages, "srv-1", map[string]any{"chat_id": "c1"})
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	// userA reacted 👍 then 🔥 while offline: two queued mutations.
	if err := db.EnqueueReaction(&store.PendingReaction{ID: "op-1", ChatID: "c1", MessageID: "srv-1", UserID: "userA", Emoji: "👍", Timestamp: 100, CreatedAt: 100}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueReaction(&store.PendingReaction{ID: "op-2", ChatID: "c1", MessageID: "srv-1", UserID: "userA", Emoji: "🔥", Timestamp: 200, CreatedAt: 200}); err != nil {
		t.Fatal(err)
	}

	e.DrainNow(context.Background())

	ops, _ := db.PendingReactions()
	if len(ops) != 0 {
		t.Errorf("got %d queued reaction ops, want 0", len(ops))
	}
	doc, _ := fr.Get(context.Background(), remote.CollectionMessages, "srv-1")
	entry, ok := doc["reactions.userA"].(map[string]any)
	if !ok {
		t.Fatal("no reaction entry for userA on remote document")
	}
	if entry["emoji"] != "🔥" {
		t.Errorf("remote emoji = %v, want 🔥 (FIFO replay, last write wins)", entry["emoji"])
	}
}

func TestReactionRejectedRemovesLocal(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote() // no message document: Update rejects
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	if _, err := db.ReplaceReaction(&store.Reaction{ChatID: "c1", MessageID: "gone", UserID: "userA", Emoji: "👍", Timestamp: 100}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueReaction(&store.PendingReaction{ID: "op-1", ChatID: "c1", MessageID: "gone", UserID: "userA", Emoji: "👍", Timestamp: 100, CreatedAt: 100}); err != nil {
		t.Fatal(err)
	}

	e.DrainNow(context.Background())

	ops, _ := db.PendingReactions()
	if len(ops) != 0 {
		t.Errorf("got %d queued ops, want 0 (rejected)", len(ops))
	}
	reactions, _ := db.ListReactions("gone")
	if len(reactions) != 0 {
		t.Errorf("got %d local reactions, want 0 (rolled back)", len(reactions))
	}
}

func TestReceiptDrain(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.seed(remote.CollectionChats, "c1", map[string]any{"name": "general"})
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	if err := db.EnqueueReadReceipt(&store.PendingReadReceipt{ID: "op-1", ChatID: "c1", UserID: "userA", EntityID: "m5", ReadAt: 100, CreatedAt: 100}); err != nil {
		t.Fatal(err)
	}

	e.DrainNow(context.Background())

	ops, _ := db.PendingReadReceipts()
	if len(ops) != 0 {
		t.Errorf("got %d queued receipts, want 0", len(ops))
	}
	doc, _ := fr.Get(context.Background(), remote.CollectionChats, "c1")
	entry, ok := doc["read_status.userA"].(map[string]any)
	if !ok {
		t.Fatal("no read_status entry for userA on remote chat")
	}
	if entry["entity_id"] != "m5" {
		t.Errorf("remote entity_id = %v, want m5", entry["entity_id"])
	}
}

func TestTransientUpdateLeavesReceiptQueued(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.seed(remote.CollectionChats, "c1", map[string]any{})
	fr.failUpdates = 100
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	if err := db.EnqueueReadReceipt(&store.PendingReadReceipt{ID: "op-1", ChatID: "c1", UserID: "userA", EntityID: "m5", ReadAt: 100, CreatedAt: 100}); err != nil {
		t.Fatal(err)
	}

	e.DrainNow(context.Background())

	// Receipts are idempotent LWW writes: they stay queued across passes.
	ops, _ := db.PendingReadReceipts()
	if len(ops) != 1 {
		t.Errorf("got %d queued receipts, want 1 (still pending)", len(ops))
	}
}

// TestConcurrentDrainsCoalesce verifies the mutual-exclusion flag: a trigger
// landing mid-pass runs one follow-up pass instead of a parallel drain.
func TestConcurrentDrainsCoalesce(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	fr.gate = make(chan struct{})
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)

	done := make(chan struct{})
	go func() {
		e.DrainNow(context.Background())
		close(done)
	}()

	// Wait for the pass to reach the gated Create, then trigger again.
	deadline := time.After(2 * time.Second)
	for {
		fr.mu.Lock()
		started := fr.inFlight > 0
		fr.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("drain never reached the remote call")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	e.DrainNow(context.Background()) // must not run concurrently

	close(fr.gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not finish")
	}

	if fr.maxInFlight != 1 {
		t.Errorf("max concurrent remote calls = %d, want 1", fr.maxInFlight)
	}
	if e.State() != Idle {
		t.Errorf("state = %s, want IDLE after coalesced rerun", e.State())
	}
}

// TestReconnectTriggersDrain drives the background worker via the monitor.
func TestReconnectTriggersDrain(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	mon := netmon.NewManual(netmon.State{}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)

	e.Start(context.Background())
	defer e.Stop()

	mon.Set(netmon.State{Connected: true, Reachability: netmon.ReachYes})

	deadline := time.After(2 * time.Second)
	for {
		ops, err := db.PendingOutboundMessages()
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reconnect did not drain the queue")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	if fr.docCount(remote.CollectionMessages) != 1 {
		t.Errorf("remote has %d documents, want exactly 1", fr.docCount(remote.CollectionMessages))
	}
}

// TestStoppedEngineRefusesDrain verifies STOPPED is terminal for every
// trigger path: a caller-driven pass after shutdown makes no attempts.
func TestStoppedEngineRefusesDrain(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachYes}, nil)
	e := testEngine(t, db, fr, mon)

	e.Start(context.Background())
	e.Stop()

	deadline := time.After(2 * time.Second)
	for e.State() != Stopped {
		select {
		case <-deadline:
			t.Fatal("engine never reached STOPPED")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())

	if fr.docCount(remote.CollectionMessages) != 0 {
		t.Error("stopped engine still drained to the remote store")
	}
	ops, _ := db.PendingOutboundMessages()
	if len(ops) != 1 {
		t.Errorf("got %d queued ops, want 1 (untouched)", len(ops))
	}
	if e.State() != Stopped {
		t.Errorf("state = %s, want STOPPED", e.State())
	}
}

func TestUnknownReachabilityAttemptsSync(t *testing.T) {
	db := testDB(t)
	fr := newFakeRemote()
	mon := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachUnknown}, nil)
	e := testEngine(t, db, fr, mon)

	queueMessage(t, db, "local-1", "c1", "hello", 1000)
	e.DrainNow(context.Background())

	// Unknown reachability is provisionally online: the attempt happens.
	if fr.docCount(remote.CollectionMessages) != 1 {
		t.Errorf("remote has %d documents, want 1 (unknown reachability must not block sync)", fr.docCount(remote.CollectionMessages))
	}
}
