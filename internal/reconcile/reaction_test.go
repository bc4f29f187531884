package reconcile

import (
	"testing"

	"github.com/lucasvidela/chatsync/internal/bus"
)

func TestSetReplacesNotAppends(t *testing.T) {
	db := testDB(t)
	r := NewReactions(db, bus.New(), nil)

	if _, err := r.Set("c1", "m1", "userA", "👍", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Set("c1", "m1", "userA", "🔥", 200); err != nil {
		t.Fatal(err)
	}

	reactions, err := db.ListReactions("m1")
	if err != nil {
		t.Fatal(err)
	}
	if len(reactions) != 1 {
		t.Fatalf("got %d reactions, want exactly 1", len(reactions))
	}
	if reactions[0].Emoji != "🔥" {
		t.Errorf("emoji = %q, want 🔥", reactions[0].Emoji)
	}
}

func TestSetStaleDropped(t *testing.T) {
	db := testDB(t)
	r := NewReactions(db, bus.New(), nil)

	if _, err := r.Set("c1", "m1", "userA", "🔥", 200); err != nil {
		t.Fatal(err)
	}
	applied, err := r.Set("c1", "m1", "userA", "👍", 100)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("older reaction displaced a newer one")
	}

	reactions, _ := db.ListReactions("m1")
	if len(reactions) != 1 || reactions[0].Emoji != "🔥" {
		t.Errorf("reactions = %+v, want single 🔥", reactions)
	}
}

func TestEmptyEmojiRemoves(t *testing.T) {
	db := testDB(t)
	r := NewReactions(db, bus.New(), nil)

	if _, err := r.Set("c1", "m1", "userA", "👍", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Set("c1", "m1", "userA", "", 200); err != nil {
		t.Fatal(err)
	}

	reactions, _ := db.ListReactions("m1")
	if len(reactions) != 0 {
		t.Errorf("got %d reactions after remove, want 0", len(reactions))
	}
}

// A removal that lost the race to a newer reaction must not delete it: the
// (message, user) register is last-writer-wins in both directions.
func TestStaleRemovalDropped(t *testing.T) {
	db := testDB(t)
	r := NewReactions(db, bus.New(), nil)

	if _, err := r.Set("c1", "m1", "userA", "🔥", 200); err != nil {
		t.Fatal(err)
	}
	applied, err := r.Set("c1", "m1", "userA", "", 100)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("stale removal reported as applied")
	}

	reactions, _ := db.ListReactions("m1")
	if len(reactions) != 1 || reactions[0].Emoji != "🔥" {
		t.Errorf("reactions = %+v, want the newer 🔥 to survive", reactions)
	}

	// An equally-new or newer removal still wins.
	applied, err = r.Set("c1", "m1", "userA", "", 200)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Error("removal at the stored timestamp not applied")
	}
	reactions, _ = db.ListReactions("m1")
	if len(reactions) != 0 {
		t.Errorf("got %d reactions after removal, want 0", len(reactions))
	}
}

func TestRemoveIdempotent(t *testing.T) {
	db := testDB(t)
	r := NewReactions(db, bus.New(), nil)

	if err := r.Remove("m1", "userA"); err != nil {
		t.Errorf("removing non-existent reaction = %v, want nil", err)
	}
	if err := r.Remove("m1", "userA"); err != nil {
		t.Errorf("second remove = %v, want nil", err)
	}
}

func TestDifferentUsersKeepOwnReactions(t *testing.T) {
	db := testDB(t)
	r := NewReactions(db, bus.New(), nil)

	if _, err := r.Set("c1", "m1", "userA", "👍", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Set("c1", "m1", "userB", "🔥", 100); err != nil {
		t.Fatal(err)
	}

	reactions, _ := db.ListReactions("m1")
	if len(reactions) != 2 {
		t.Errorf("got %d reactions, want 2 (one per user)", len(reactions))
	}
}
