package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/model"
)

// Manager assembles the message window handed to the chat model from the
// stored conversation history.
type Manager struct {
	conversationRepo model.ConversationRepository
	historyMax       int
}

func NewManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *Manager {
	return &Manager{
		conversationRepo: conversationRepo,
		historyMax:       config.HistoryMaxMessages,
	}
}

// RecordUserMessage appends the incoming prompt to the user's history.
func (m *Manager) RecordUserMessage(ctx context.Context, userID string, prompt string) error {
	return m.conversationRepo.AddMessage(ctx, userID, schema.UserMessage(prompt))
}

// RecordAssistantMessage appends a model response to the user's history,
// tool calls included, so a later turn replays the full exchange.
func (m *Manager) RecordAssistantMessage(ctx context.Context, userID string, msg *schema.Message) error {
	return m.conversationRepo.AddMessage(ctx, userID, msg)
}

// RecordToolMessages appends tool results to the user's history in
// execution order.
func (m *Manager) RecordToolMessages(ctx context.Context, userID string, msgs []*schema.Message) error {
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if err := m.conversationRepo.AddMessage(ctx, userID, msg); err != nil {
			return err
		}
	}
	return nil
}

// BuildModelContext returns the system prompt followed by the user's stored
// history, truncated to the configured window. A user with no history yet
// yields just the system prompt.
func (m *Manager) BuildModelContext(ctx context.Context, userID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := m.conversationRepo.LoadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	if history == nil {
		return messages, nil
	}
	return append(messages, trimTail(history.Messages, m.historyMax)...), nil
}

// trimTail keeps the most recent maxMessages entries. The cut never starts
// on a tool result: a tool message only makes sense after the assistant
// message that requested it, so the window is advanced past orphaned tool
// results. maxMessages <= 0 keeps everything.
func trimTail(messages []*schema.Message, maxMessages int) []*schema.Message {
	if maxMessages <= 0 || len(messages) <= maxMessages {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}

	start := len(messages) - maxMessages
	for start < len(messages) && messages[start] != nil && messages[start].Role == schema.Tool {
		start++
	}

	source := messages[start:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
