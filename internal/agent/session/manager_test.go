package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/model"
	"github.com/aleostudio/ai-agent/internal/agent/repo"
	errx "github.com/aleostudio/ai-agent/internal/core/error"
)

// echoRunner answers every turn and records what it stores, like the real
// graph does, so session queries see consistent history.
type echoRunner struct {
	store model.ConversationRepository

	mu      sync.Mutex
	active  int
	maxSeen int
}

func (r *echoRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if err := r.store.AddMessage(ctx, in.UserID, schema.UserMessage(in.Prompt)); err != nil {
		return nil, err
	}
	reply := schema.AssistantMessage("echo: "+in.Prompt, nil)
	if err := r.store.AddMessage(ctx, in.UserID, reply); err != nil {
		return nil, err
	}
	return &model.TurnResult{UserID: in.UserID, Response: reply}, nil
}

type failingRunner struct{}

func (failingRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	return nil, errors.New("model unavailable")
}

func newTestManager() (*Manager, *echoRunner, model.ConversationRepository) {
	store := repo.NewMemoryRepository()
	runner := &echoRunner{store: store}
	return NewManager(runner, store), runner, store
}

func TestInteractMintsUserID(t *testing.T) {
	m, _, store := newTestManager()

	result, err := m.Interact(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Interact: %v", err)
	}
	if result.UserID == "" {
		t.Fatalf("no user id minted")
	}
	if ok, _ := store.Exists(context.Background(), result.UserID); !ok {
		t.Fatalf("minted session not stored")
	}
}

func TestInteractKeepsExplicitUserID(t *testing.T) {
	m, _, _ := newTestManager()

	result, err := m.Interact(context.Background(), "alice", "hello")
	if err != nil {
		t.Fatalf("Interact: %v", err)
	}
	if result.UserID != "alice" {
		t.Fatalf("UserID = %q, want alice", result.UserID)
	}
	if result.Response.Content != "echo: hello" {
		t.Fatalf("Response = %q", result.Response.Content)
	}
}

func TestInteractSerializesPerUser(t *testing.T) {
	m, runner, _ := newTestManager()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Interact(context.Background(), "bob", "ping"); err != nil {
				t.Errorf("Interact: %v", err)
			}
		}()
	}
	wg.Wait()

	if runner.maxSeen != 1 {
		t.Fatalf("maxSeen = %d, want turns for one user to run one at a time", runner.maxSeen)
	}
	count, _ := m.conversationRepo.MessageCount(context.Background(), "bob")
	if count != 16 {
		t.Fatalf("messages = %d, want 16 from 8 serialized turns", count)
	}
}

// barrierRunner blocks every turn until release is closed, so the test can
// prove two turns are in flight at the same time.
type barrierRunner struct {
	store   model.ConversationRepository
	arrived chan string
	release chan struct{}
}

func (r *barrierRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	r.arrived <- in.UserID
	<-r.release
	if err := r.store.AddMessage(ctx, in.UserID, schema.UserMessage(in.Prompt)); err != nil {
		return nil, err
	}
	reply := schema.AssistantMessage("for "+in.UserID, nil)
	if err := r.store.AddMessage(ctx, in.UserID, reply); err != nil {
		return nil, err
	}
	return &model.TurnResult{UserID: in.UserID, Response: reply}, nil
}

func TestInteractDistinctUsersRunConcurrently(t *testing.T) {
	store := repo.NewMemoryRepository()
	runner := &barrierRunner{
		store:   store,
		arrived: make(chan string, 2),
		release: make(chan struct{}),
	}
	m := NewManager(runner, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			if _, err := m.Interact(ctx, user, "hello from "+user); err != nil {
				t.Errorf("Interact(%s): %v", user, err)
			}
		}(user)
	}

	// Both turns must reach the runner before either is released. If distinct
	// users were serialized against each other, the second arrival would
	// never happen.
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[<-runner.arrived] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Fatalf("arrivals = %v, want both users in flight", seen)
	}
	close(runner.release)
	wg.Wait()

	for _, user := range []string{"alice", "bob"} {
		history, err := store.LoadHistory(ctx, user)
		if err != nil || history == nil {
			t.Fatalf("LoadHistory(%s): %v, %v", user, history, err)
		}
		if len(history.Messages) != 2 {
			t.Fatalf("%s has %d messages, want 2", user, len(history.Messages))
		}
		if got := history.Messages[0].Content; got != "hello from "+user {
			t.Fatalf("%s history holds %q, leaked across sessions", user, got)
		}
		if got := history.Messages[1].Content; got != "for "+user {
			t.Fatalf("%s reply = %q, leaked across sessions", user, got)
		}
	}
}

func TestInteractWrapsRunnerError(t *testing.T) {
	store := repo.NewMemoryRepository()
	m := NewManager(failingRunner{}, store)

	_, err := m.Interact(context.Background(), "alice", "hi")
	if err == nil {
		t.Fatalf("expected error")
	}
	var appErr *errx.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want *errx.AppError", err)
	}
	if appErr.Status != 502 {
		t.Fatalf("Status = %d, want 502", appErr.Status)
	}
}

func TestStatusAndDelete(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()

	if _, err := m.Interact(ctx, "alice", "hello"); err != nil {
		t.Fatalf("Interact: %v", err)
	}

	summary, err := m.Status(ctx, "alice")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if summary.UserID != "alice" || summary.MessageCount != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	all, err := m.StatusAll(ctx)
	if err != nil {
		t.Fatalf("StatusAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("StatusAll = %d sessions, want 1", len(all))
	}

	if err := m.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Status(ctx, "alice"); !errors.Is(err, errx.ErrSessionNotFound) {
		t.Fatalf("Status after delete = %v, want ErrSessionNotFound", err)
	}
	if err := m.Delete(ctx, "alice"); !errors.Is(err, errx.ErrSessionNotFound) {
		t.Fatalf("second Delete = %v, want ErrSessionNotFound", err)
	}
}

func TestStatusUnknownUser(t *testing.T) {
	m, _, _ := newTestManager()
	if _, err := m.Status(context.Background(), "ghost"); !errors.Is(err, errx.ErrSessionNotFound) {
		t.Fatalf("Status = %v, want ErrSessionNotFound", err)
	}
}

func TestSetRunnerSwaps(t *testing.T) {
	m, _, store := newTestManager()
	ctx := context.Background()

	if _, err := m.Interact(ctx, "alice", "hi"); err != nil {
		t.Fatalf("Interact: %v", err)
	}

	m.SetRunner(failingRunner{})
	if _, err := m.Interact(ctx, "alice", "hi again"); err == nil {
		t.Fatalf("swapped runner not used")
	}

	m.SetRunner(&echoRunner{store: store})
	if _, err := m.Interact(ctx, "alice", "back"); err != nil {
		t.Fatalf("Interact after swap back: %v", err)
	}
}
