package conversations

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/model"
	"github.com/aleostudio/ai-agent/internal/agent/repo"
)

func newManager(t *testing.T, historyMax int) (*Manager, model.ConversationRepository) {
	t.Helper()
	store := repo.NewMemoryRepository()
	return NewManager(store, model.ConversationConfig{HistoryMaxMessages: historyMax}), store
}

func TestBuildModelContextNewUser(t *testing.T) {
	m, _ := newManager(t, 0)

	msgs, err := m.BuildModelContext(context.Background(), "u1", "be helpful")
	if err != nil {
		t.Fatalf("BuildModelContext: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != schema.System || msgs[0].Content != "be helpful" {
		t.Fatalf("msgs = %v, want only the system prompt", msgs)
	}
}

func TestBuildModelContextIncludesHistory(t *testing.T) {
	m, store := newManager(t, 0)
	ctx := context.Background()

	if err := m.RecordUserMessage(ctx, "u1", "hello"); err != nil {
		t.Fatalf("RecordUserMessage: %v", err)
	}
	if err := store.AddMessage(ctx, "u1", schema.AssistantMessage("hi there", nil)); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	msgs, err := m.BuildModelContext(ctx, "u1", "sys")
	if err != nil {
		t.Fatalf("BuildModelContext: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[1].Role != schema.User || msgs[1].Content != "hello" {
		t.Fatalf("msgs[1] = %v", msgs[1])
	}
	if msgs[2].Role != schema.Assistant || msgs[2].Content != "hi there" {
		t.Fatalf("msgs[2] = %v", msgs[2])
	}
}

func TestTrimTailKeepsRecent(t *testing.T) {
	messages := []*schema.Message{
		schema.UserMessage("one"),
		schema.AssistantMessage("two", nil),
		schema.UserMessage("three"),
		schema.AssistantMessage("four", nil),
	}

	got := trimTail(messages, 2)
	if len(got) != 2 || got[0].Content != "three" || got[1].Content != "four" {
		t.Fatalf("got %v, want the last two messages", got)
	}
}

func TestTrimTailSkipsOrphanedToolResults(t *testing.T) {
	toolCall := schema.AssistantMessage("", []schema.ToolCall{{ID: "c1", Function: schema.FunctionCall{Name: "calculate"}}})
	messages := []*schema.Message{
		schema.UserMessage("compute"),
		toolCall,
		schema.ToolMessage("42", "c1"),
		schema.AssistantMessage("the answer is 42", nil),
	}

	// A cut of 2 would start on the tool result; the window must advance
	// past it so the model never sees a result without its call.
	got := trimTail(messages, 2)
	if len(got) != 1 || got[0].Role != schema.Assistant || got[0].Content != "the answer is 42" {
		t.Fatalf("got %v, want only the final assistant message", got)
	}

	// A cut of 3 starts on the assistant tool-call message, which keeps the
	// pair intact, so nothing is skipped.
	got = trimTail(messages, 3)
	if len(got) != 3 || got[0] != toolCall {
		t.Fatalf("got %v, want the last three messages starting at the tool call", got)
	}
}

func TestTrimTailUnboundedCopies(t *testing.T) {
	messages := []*schema.Message{schema.UserMessage("hi")}
	got := trimTail(messages, 0)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	got[0] = nil
	if messages[0] == nil {
		t.Fatalf("trimTail returned the backing slice")
	}
}
