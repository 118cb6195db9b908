package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/liftwise/coach-agent/pkg/models"
	"github.com/liftwise/coach-agent/pkg/storage"
	"github.com/rs/zerolog"
)

// recordingStore wraps a real store and captures set deletions so tests
// can observe the order the execution pass runs in.
type recordingStore struct {
	storage.Storage
	deleted []uint
}

func (r *recordingStore) DeleteSet(ctx context.Context, id uint) error {
	r.deleted = append(r.deleted, id)
	return r.Storage.DeleteSet(ctx, id)
}

func TestUndoTurn(t *testing.T) {
	l, store, cleanup := setupLedger(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	set1, _ := logSet(t, l, "u1", "turn-1", base)
	set2, _ := logSet(t, l, "u1", "turn-1", base.Add(time.Minute))
	set3, _ := logSet(t, l, "u1", "turn-1", base.Add(2*time.Minute))

	res, err := l.UndoTurn(ctx, "turn-1", "u1")
	if err != nil {
		t.Fatalf("undo turn failed: %v", err)
	}
	if !res.OK || res.UndoneCount != 3 {
		t.Fatalf("expected 3 undone, got %+v", res)
	}

	for _, id := range []uint{set1.ID, set2.ID, set3.ID} {
		if _, err := store.GetSet(ctx, id); err != storage.ErrNotFound {
			t.Errorf("expected set %d deleted, got %v", id, err)
		}
	}
}

func TestUndoTurn_ReverseChronologicalOrder(t *testing.T) {
	l, store, cleanup := setupLedger(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	set1, _ := logSet(t, l, "u1", "turn-1", base)
	set2, _ := logSet(t, l, "u1", "turn-1", base.Add(time.Minute))
	set3, _ := logSet(t, l, "u1", "turn-1", base.Add(2*time.Minute))

	rec := &recordingStore{Storage: store}
	res, err := New(zerolog.Nop(), rec).UndoTurn(ctx, "turn-1", "u1")
	if err != nil || !res.OK {
		t.Fatalf("undo turn: res=%+v err=%v", res, err)
	}

	want := []uint{set3.ID, set2.ID, set1.ID}
	if len(rec.deleted) != len(want) {
		t.Fatalf("expected %d deletions, got %d", len(want), len(rec.deleted))
	}
	for i, id := range want {
		if rec.deleted[i] != id {
			t.Errorf("deletion %d: expected set %d, got %d", i, id, rec.deleted[i])
		}
	}
}

func TestUndoTurn_AtomicOnMissingTarget(t *testing.T) {
	l, store, cleanup := setupLedger(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	set1, _ := logSet(t, l, "u1", "turn-1", base)
	set2, action2 := logSet(t, l, "u1", "turn-1", base.Add(time.Minute))
	set3, _ := logSet(t, l, "u1", "turn-1", base.Add(2*time.Minute))

	// The middle target vanishes before the undo request arrives.
	if err := store.DeleteSet(ctx, set2.ID); err != nil {
		t.Fatalf("failed to delete set: %v", err)
	}

	res, err := l.UndoTurn(ctx, "turn-1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonMissingTarget {
		t.Fatalf("expected missing_target, got %+v", res)
	}
	if res.ActionID != action2.ID {
		t.Errorf("expected failing action %d to be named, got %d", action2.ID, res.ActionID)
	}

	// Nothing else may have been touched.
	for _, id := range []uint{set1.ID, set3.ID} {
		if _, err := store.GetSet(ctx, id); err != nil {
			t.Errorf("expected set %d untouched, got %v", id, err)
		}
	}
	actions, err := store.GetActionsByUserAndTurn(ctx, "u1", "turn-1")
	if err != nil {
		t.Fatalf("failed to query actions: %v", err)
	}
	for _, a := range actions {
		if a.Status != models.ActionCommitted {
			t.Errorf("expected action %d to stay committed, got %q", a.ID, a.Status)
		}
	}
}

func TestUndoTurn_AbortsOnConflictWithoutDeleting(t *testing.T) {
	l, store, cleanup := setupLedger(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	set1, _ := logSet(t, l, "u1", "turn-1", base)
	set2, action2 := logSet(t, l, "u1", "turn-1", base.Add(time.Minute))

	// Externally edit set2 so its snapshot no longer matches.
	if err := store.DeleteSet(ctx, set2.ID); err != nil {
		t.Fatalf("failed to clear set: %v", err)
	}
	edited := *set2
	edited.Reps = 99
	if err := store.CreateSet(ctx, &edited); err != nil {
		t.Fatalf("failed to recreate edited set: %v", err)
	}

	rec := &recordingStore{Storage: store}
	res, err := New(zerolog.Nop(), rec).UndoTurn(ctx, "turn-1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonConflict {
		t.Fatalf("expected conflict, got %+v", res)
	}
	if res.ActionID != action2.ID {
		t.Errorf("expected failing action %d, got %d", action2.ID, res.ActionID)
	}
	if len(rec.deleted) != 0 {
		t.Errorf("expected no deletions on aborted turn, got %v", rec.deleted)
	}
	if _, err := store.GetSet(ctx, set1.ID); err != nil {
		t.Errorf("expected set %d untouched: %v", set1.ID, err)
	}
}

func TestUndoTurn_SkipsUndoneActions(t *testing.T) {
	l, _, cleanup := setupLedger(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	logSet(t, l, "u1", "turn-1", base)
	_, action2 := logSet(t, l, "u1", "turn-1", base.Add(time.Minute))

	if res, err := l.UndoAction(ctx, action2.ID, "u1"); err != nil || !res.OK {
		t.Fatalf("single undo: res=%+v err=%v", res, err)
	}

	res, err := l.UndoTurn(ctx, "turn-1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK || res.UndoneCount != 1 {
		t.Fatalf("expected 1 remaining action undone, got %+v", res)
	}
}

func TestUndoTurn_EmptyTurn(t *testing.T) {
	l, _, cleanup := setupLedger(t)
	defer cleanup()

	res, err := l.UndoTurn(context.Background(), "no-such-turn", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonNotFound {
		t.Errorf("expected not_found for empty turn, got %+v", res)
	}
}

func TestUndoTurn_ScopedToCaller(t *testing.T) {
	l, store, cleanup := setupLedger(t)
	defer cleanup()
	ctx := context.Background()

	set, _ := logSet(t, l, "u1", "turn-1", time.Now().UTC())

	// Another user cannot reach into u1's turn.
	res, err := l.UndoTurn(ctx, "turn-1", "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK {
		t.Fatalf("expected failure for foreign turn, got %+v", res)
	}
	if _, err := store.GetSet(ctx, set.ID); err != nil {
		t.Errorf("expected set untouched: %v", err)
	}
}
