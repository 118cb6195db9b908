package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/liftwise/coach-agent/pkg/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	// Create temp file for test database
	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	cfg := Config{
		DatabasePath: tmpFile.Name(),
		Debug:        false,
	}

	store, err := NewSQLiteStorage(cfg)
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create storage: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return store, cleanup
}

func TestNewSQLiteStorage(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if store == nil {
		t.Fatal("expected non-nil storage")
	}
	if store.db == nil {
		t.Fatal("expected non-nil database connection")
	}
}

func TestNewSQLiteStorage_InvalidPath(t *testing.T) {
	cfg := Config{
		DatabasePath: "/nonexistent/path/test.db",
		Debug:        false,
	}

	_, err := NewSQLiteStorage(cfg)
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestCreateSet(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	set := &models.SetEntry{
		UserID:      "u1",
		ExerciseID:  "bench_press",
		Reps:        10,
		Weight:      135,
		Unit:        "lbs",
		PerformedAt: time.Now().UTC(),
	}

	if err := store.CreateSet(ctx, set); err != nil {
		t.Fatalf("failed to create set: %v", err)
	}
	if set.ID == 0 {
		t.Error("expected non-zero ID after creation")
	}
	if set.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestGetSet_NotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.GetSet(context.Background(), 99999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSet(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	set := &models.SetEntry{UserID: "u1", ExerciseID: "squat", Reps: 5, PerformedAt: time.Now().UTC()}
	if err := store.CreateSet(ctx, set); err != nil {
		t.Fatalf("failed to create set: %v", err)
	}

	if err := store.DeleteSet(ctx, set.ID); err != nil {
		t.Fatalf("failed to delete set: %v", err)
	}

	if _, err := store.GetSet(ctx, set.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListSetsByUser(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 15; i++ {
		set := &models.SetEntry{
			UserID:      "u1",
			ExerciseID:  "deadlift",
			Reps:        5,
			PerformedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateSet(ctx, set); err != nil {
			t.Fatalf("failed to create set %d: %v", i, err)
		}
	}
	// A second user's sets must not leak into u1's listing.
	other := &models.SetEntry{UserID: "u2", ExerciseID: "deadlift", Reps: 3, PerformedAt: base}
	if err := store.CreateSet(ctx, other); err != nil {
		t.Fatalf("failed to create other user's set: %v", err)
	}

	sets, total, err := store.ListSetsByUser(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("failed to list sets: %v", err)
	}
	if total != 15 {
		t.Errorf("expected total 15, got %d", total)
	}
	if len(sets) != 10 {
		t.Errorf("expected 10 sets, got %d", len(sets))
	}
	// Most recent first.
	for i := 1; i < len(sets); i++ {
		if sets[i].PerformedAt.After(sets[i-1].PerformedAt) {
			t.Errorf("expected descending performed_at order at index %d", i)
		}
	}
}

func TestListSetsByUserAndExercise(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	for _, ex := range []string{"squat", "squat", "bench_press"} {
		set := &models.SetEntry{UserID: "u1", ExerciseID: ex, Reps: 5, PerformedAt: now}
		if err := store.CreateSet(ctx, set); err != nil {
			t.Fatalf("failed to create set: %v", err)
		}
	}

	sets, err := store.ListSetsByUserAndExercise(ctx, "u1", "squat", 0)
	if err != nil {
		t.Fatalf("failed to list sets: %v", err)
	}
	if len(sets) != 2 {
		t.Errorf("expected 2 squat sets, got %d", len(sets))
	}
}

func TestCreateSetWithAction(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	set := &models.SetEntry{
		UserID:      "u1",
		ExerciseID:  "bench_press",
		Reps:        10,
		Weight:      135,
		Unit:        "lbs",
		PerformedAt: now,
	}
	action := &models.AgentAction{
		UserID:      "u1",
		TurnID:      "turn-1",
		Kind:        models.KindLogSet,
		Status:      models.ActionCommitted,
		PerformedAt: now,
	}
	action.SetBeforeSnapshot(set.Snapshot())

	if err := store.CreateSetWithAction(ctx, set, action); err != nil {
		t.Fatalf("failed to create set with action: %v", err)
	}
	if set.ID == 0 || action.ID == 0 {
		t.Fatal("expected both records to receive ids")
	}

	ids := action.AffectedIDs()
	if len(ids) != 1 || ids[0] != set.ID {
		t.Errorf("expected affected ids [%d], got %v", set.ID, ids)
	}
}

func TestGetActionsByUserAndTurn(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		action := &models.AgentAction{
			UserID:      "u1",
			TurnID:      "turn-1",
			Kind:        models.KindLogSet,
			Status:      models.ActionCommitted,
			PerformedAt: base.Add(time.Duration(i) * time.Second),
		}
		action.SetAffectedIDs([]uint{uint(i + 1)})
		if err := store.CreateAction(ctx, action); err != nil {
			t.Fatalf("failed to create action %d: %v", i, err)
		}
	}
	// Different turn, must be excluded.
	stray := &models.AgentAction{
		UserID: "u1", TurnID: "turn-2", Kind: models.KindLogSet,
		Status: models.ActionCommitted, PerformedAt: base,
	}
	if err := store.CreateAction(ctx, stray); err != nil {
		t.Fatalf("failed to create stray action: %v", err)
	}

	actions, err := store.GetActionsByUserAndTurn(ctx, "u1", "turn-1")
	if err != nil {
		t.Fatalf("failed to query actions: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}
	// Most recent first.
	for i := 1; i < len(actions); i++ {
		if actions[i].PerformedAt.After(actions[i-1].PerformedAt) {
			t.Errorf("expected descending performed_at order at index %d", i)
		}
	}
}

func TestMarkActionUndone(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	action := &models.AgentAction{
		UserID:      "u1",
		TurnID:      "turn-1",
		Kind:        models.KindLogSet,
		Status:      models.ActionCommitted,
		PerformedAt: time.Now().UTC(),
	}
	action.SetAffectedIDs([]uint{1})
	if err := store.CreateAction(ctx, action); err != nil {
		t.Fatalf("failed to create action: %v", err)
	}

	undoneAt := time.Now().UTC()
	if err := store.MarkActionUndone(ctx, action.ID, undoneAt); err != nil {
		t.Fatalf("failed to mark action undone: %v", err)
	}

	got, err := store.GetAction(ctx, action.ID)
	if err != nil {
		t.Fatalf("failed to get action: %v", err)
	}
	if got.Status != models.ActionUndone {
		t.Errorf("expected status %q, got %q", models.ActionUndone, got.Status)
	}
	if got.UndoneAt == nil {
		t.Error("expected UndoneAt to be set")
	}
}
