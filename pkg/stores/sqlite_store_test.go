package stores

import (
	"context"
	"errors"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRun(id string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        id,
		Kind:      RunKindDatapackage,
		Target:    "analysis",
		Image:     "example/algorithm",
		Status:    RunStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestCreateAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := newTestRun("run-1")
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Kind != RunKindDatapackage || got.Target != "analysis" || got.Status != RunStatusRunning {
		t.Errorf("unexpected run: %+v", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "ghost")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestCompleteRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, newTestRun("run-1")); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if err := store.CompleteRun(ctx, "run-1", RunStatusFailed, "boom", errors.New("exit status 1")); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Errorf("status not updated: %s", got.Status)
	}
	if got.Logs != "boom" {
		t.Errorf("logs not recorded: %q", got.Logs)
	}
	if got.Error == nil || *got.Error != "exit status 1" {
		t.Errorf("error not recorded: %v", got.Error)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestCompleteRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.CompleteRun(context.Background(), "ghost", RunStatusCompleted, "", nil)
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsOrderAndLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := newTestRun(id)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("limit not applied: got %d runs", len(runs))
	}
	if runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("runs not ordered most recent first: %s, %s", runs[0].ID, runs[1].ID)
	}
}
