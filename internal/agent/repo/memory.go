package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/model"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

type memorySession struct {
	messages   []*schema.Message
	createdAt  time.Time
	lastActive time.Time
}

// MemoryRepository keeps conversation history in process memory. This is the
// default store: state is intentionally short-lived and lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (r *MemoryRepository) AddMessage(ctx context.Context, userID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s, ok := r.sessions[userID]
	if !ok {
		s = &memorySession{createdAt: now}
		r.sessions[userID] = s
	}
	s.messages = append(s.messages, message)
	s.lastActive = now
	return nil
}

func (r *MemoryRepository) LoadHistory(ctx context.Context, userID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, nil
	}
	msgs := make([]*schema.Message, len(s.messages))
	copy(msgs, s.messages)
	return &model.ConversationHistory{UserID: userID, Messages: msgs}, nil
}

func (r *MemoryRepository) ClearHistory(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[userID]
	delete(r.sessions, userID)
	return ok, nil
}

func (r *MemoryRepository) Exists(ctx context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[userID]
	return ok, nil
}

func (r *MemoryRepository) MessageCount(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return 0, nil
	}
	return len(s.messages), nil
}

func (r *MemoryRepository) Summary(ctx context.Context, userID string) (*model.SessionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &model.SessionSummary{
		UserID:       userID,
		MessageCount: len(s.messages),
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActive,
	}, nil
}

func (r *MemoryRepository) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.SessionSummary, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, model.SessionSummary{
			UserID:       id,
			MessageCount: len(s.messages),
			CreatedAt:    s.createdAt,
			LastActiveAt: s.lastActive,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActiveAt.After(out[j].LastActiveAt)
	})
	return out, nil
}

// Sweep evicts sessions idle longer than maxAge and, when maxCount > 0,
// the least recently active sessions above that count. Zero disables each
// criterion. Returns the number of sessions removed.
func (r *MemoryRepository) Sweep(maxAge time.Duration, maxCount int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	if maxAge > 0 {
		cutoff := r.now().Add(-maxAge)
		for id, s := range r.sessions {
			if s.lastActive.Before(cutoff) {
				delete(r.sessions, id)
				removed++
			}
		}
	}

	if maxCount > 0 && len(r.sessions) > maxCount {
		type entry struct {
			id         string
			lastActive time.Time
		}
		entries := make([]entry, 0, len(r.sessions))
		for id, s := range r.sessions {
			entries = append(entries, entry{id, s.lastActive})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].lastActive.Before(entries[j].lastActive)
		})
		for _, e := range entries[:len(r.sessions)-maxCount] {
			delete(r.sessions, e.id)
			removed++
		}
	}

	if removed > 0 {
		logx.Debug().Int("removed", removed).Msg("swept idle sessions")
	}
	return removed
}

var _ model.ConversationRepository = (*MemoryRepository)(nil)
