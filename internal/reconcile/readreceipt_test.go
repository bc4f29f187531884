package reconcile

import (
	"path/filepath"
	"testing"

	"github.com/lucasvidela/chatsync/internal/bus"
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

func TestAdvanceMonotonic(t *testing.T) {
	db := testDB(t)
	r := NewReadReceipts(db, bus.New(), nil)

	applied, err := r.Advance("c1", "userA", "m5", 100)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Fatal("first advance not applied")
	}

	// A stale receipt for an earlier message arrives afterward.
	applied, err = r.Advance("c1", "userA", "m3", 80)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("stale receipt was applied")
	}

	rs, err := db.GetReadStatus("c1", "userA")
	if err != nil {
		t.Fatal(err)
	}
	if rs.LastReadEntityID != "m5" || rs.LastReadAt != 100 {
		t.Errorf("register = %s/%d, want m5/100", rs.LastReadEntityID, rs.LastReadAt)
	}
}

func TestAdvancePublishesOnApply(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewReadReceipts(db, b, nil)

	ch, unsub := b.Subscribe("receipt.", 10)
	defer unsub()

	if _, err := r.Advance("c1", "userA", "m1", 100); err != nil {
		t.Fatal(err)
	}
	select {
	case evt := <-ch:
		if evt.Kind != "receipt.advanced" {
			t.Errorf("kind = %q, want receipt.advanced", evt.Kind)
		}
	default:
		t.Fatal("no event published for applied advance")
	}

	// A dropped advance must stay silent.
	if _, err := r.Advance("c1", "userA", "m0", 50); err != nil {
		t.Fatal(err)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %q for dropped advance", evt.Kind)
	default:
	}
}

func TestReceiptVisible(t *testing.T) {
	msgs := []store.Message{
		{ID: "m1", ChatID: "c1", SenderID: "userB", Timestamp: 100},
		{ID: "m2", ChatID: "c1", SenderID: "userA", Timestamp: 200},
		{ID: "m3", ChatID: "c1", SenderID: "userB", Timestamp: 300},
	}

	tests := []struct {
		name string
		rs   store.UserReadStatus
		msg  store.Message
		want bool
	}{
		{
			name: "visible under last-read message",
			rs:   store.UserReadStatus{ChatID: "c1", UserID: "userA", LastReadEntityID: "m3", LastReadAt: 400},
			msg:  msgs[2],
			want: true,
		},
		{
			name: "not visible under a different message",
			rs:   store.UserReadStatus{ChatID: "c1", UserID: "userA", LastReadEntityID: "m3", LastReadAt: 400},
			msg:  msgs[0],
			want: false,
		},
		{
			name: "hidden when reader sent a later message",
			rs:   store.UserReadStatus{ChatID: "c1", UserID: "userA", LastReadEntityID: "m1", LastReadAt: 150},
			msg:  msgs[0],
			want: false, // userA sent m2 at 200 > m1's 100
		},
		{
			name: "reader's own earlier messages do not hide",
			rs:   store.UserReadStatus{ChatID: "c1", UserID: "userB", LastReadEntityID: "m2", LastReadAt: 250},
			msg:  msgs[1],
			want: false, // userB sent m3 at 300 > m2's 200
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReceiptVisible(tt.rs, tt.msg, msgs); got != tt.want {
				t.Errorf("ReceiptVisible() = %v, want %v", got, tt.want)
			}
		})
	}
}
