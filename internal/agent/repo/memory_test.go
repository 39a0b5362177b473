package repo

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
)

func TestMemoryRepositoryLifecycle(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	// Unknown user: absent, not an error.
	history, err := r.LoadHistory(ctx, "u1")
	if err != nil || history != nil {
		t.Fatalf("LoadHistory = %v, %v, want nil, nil", history, err)
	}
	if ok, _ := r.Exists(ctx, "u1"); ok {
		t.Fatalf("Exists before first message")
	}
	if summary, _ := r.Summary(ctx, "u1"); summary != nil {
		t.Fatalf("Summary before first message = %v", summary)
	}

	// First message creates the session.
	if err := r.AddMessage(ctx, "u1", schema.UserMessage("hi")); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := r.AddMessage(ctx, "u1", schema.AssistantMessage("hello", nil)); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	history, err = r.LoadHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if history.UserID != "u1" || len(history.Messages) != 2 {
		t.Fatalf("history = %+v", history)
	}
	if history.Messages[0].Content != "hi" || history.Messages[1].Content != "hello" {
		t.Fatalf("message order = %v", history.Messages)
	}
	if count, _ := r.MessageCount(ctx, "u1"); count != 2 {
		t.Fatalf("MessageCount = %d", count)
	}

	// Clear removes the session entirely.
	existed, err := r.ClearHistory(ctx, "u1")
	if err != nil || !existed {
		t.Fatalf("ClearHistory = %v, %v", existed, err)
	}
	if existed, _ = r.ClearHistory(ctx, "u1"); existed {
		t.Fatalf("second ClearHistory reported an existing session")
	}
	if ok, _ := r.Exists(ctx, "u1"); ok {
		t.Fatalf("Exists after clear")
	}
}

func TestMemoryRepositoryLoadHistoryIsACopy(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_ = r.AddMessage(ctx, "u1", schema.UserMessage("one"))
	history, _ := r.LoadHistory(ctx, "u1")
	history.Messages[0] = schema.UserMessage("mutated")

	reloaded, _ := r.LoadHistory(ctx, "u1")
	if reloaded.Messages[0].Content != "one" {
		t.Fatalf("stored history was mutated through the returned slice")
	}
}

func TestMemoryRepositorySummaryTimestamps(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	r.now = func() time.Time { return current }

	_ = r.AddMessage(ctx, "u1", schema.UserMessage("hi"))
	current = base.Add(5 * time.Minute)
	_ = r.AddMessage(ctx, "u1", schema.AssistantMessage("hello", nil))

	summary, err := r.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !summary.CreatedAt.Equal(base) {
		t.Fatalf("CreatedAt = %v, want %v", summary.CreatedAt, base)
	}
	if !summary.LastActiveAt.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("LastActiveAt = %v", summary.LastActiveAt)
	}
}

func TestMemoryRepositoryListSessionsOrder(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	r.now = func() time.Time { return current }

	_ = r.AddMessage(ctx, "old", schema.UserMessage("a"))
	current = base.Add(time.Minute)
	_ = r.AddMessage(ctx, "mid", schema.UserMessage("b"))
	current = base.Add(2 * time.Minute)
	_ = r.AddMessage(ctx, "new", schema.UserMessage("c"))

	sessions, err := r.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("sessions = %d", len(sessions))
	}
	if sessions[0].UserID != "new" || sessions[1].UserID != "mid" || sessions[2].UserID != "old" {
		t.Fatalf("order = %s, %s, %s", sessions[0].UserID, sessions[1].UserID, sessions[2].UserID)
	}
}

func TestMemoryRepositorySweepByAge(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	r.now = func() time.Time { return current }

	_ = r.AddMessage(ctx, "stale", schema.UserMessage("a"))
	current = base.Add(30 * time.Minute)
	_ = r.AddMessage(ctx, "fresh", schema.UserMessage("b"))

	if removed := r.Sweep(10*time.Minute, 0); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if ok, _ := r.Exists(ctx, "stale"); ok {
		t.Fatalf("stale session survived the sweep")
	}
	if ok, _ := r.Exists(ctx, "fresh"); !ok {
		t.Fatalf("fresh session was evicted")
	}
}

func TestMemoryRepositorySweepByCount(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	r.now = func() time.Time { return current }

	for i, id := range []string{"a", "b", "c", "d"} {
		current = base.Add(time.Duration(i) * time.Minute)
		_ = r.AddMessage(ctx, id, schema.UserMessage("x"))
	}

	if removed := r.Sweep(0, 2); removed != 2 {
		t.Fatalf("Sweep removed %d, want 2", removed)
	}
	for _, id := range []string{"a", "b"} {
		if ok, _ := r.Exists(ctx, id); ok {
			t.Fatalf("least recently active session %q survived", id)
		}
	}
	for _, id := range []string{"c", "d"} {
		if ok, _ := r.Exists(ctx, id); !ok {
			t.Fatalf("recently active session %q was evicted", id)
		}
	}
}

func TestMemoryRepositorySweepDisabled(t *testing.T) {
	r := NewMemoryRepository()
	_ = r.AddMessage(context.Background(), "u1", schema.UserMessage("hi"))
	if removed := r.Sweep(0, 0); removed != 0 {
		t.Fatalf("Sweep with no bounds removed %d", removed)
	}
}
