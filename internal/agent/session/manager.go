package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/aleostudio/ai-agent/internal/agent/graph"
	"github.com/aleostudio/ai-agent/internal/agent/model"
	errx "github.com/aleostudio/ai-agent/internal/core/error"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

// Manager is the façade the transport layer talks to. It serializes turns
// per user: concurrent requests for the same user queue up behind a per-user
// lock and run one at a time, while different users proceed in parallel.
type Manager struct {
	conversationRepo model.ConversationRepository

	runnerMu sync.RWMutex
	runner   graph.Runner

	// per-user locks, created on first use and never removed
	locks sync.Map
}

func NewManager(runner graph.Runner, conversationRepo model.ConversationRepository) *Manager {
	return &Manager{
		conversationRepo: conversationRepo,
		runner:           runner,
	}
}

// SetRunner swaps the turn runner, used after a tool registry refresh
// rebuilds the graph. In-flight turns finish on the old runner.
func (m *Manager) SetRunner(runner graph.Runner) {
	m.runnerMu.Lock()
	m.runner = runner
	m.runnerMu.Unlock()
}

func (m *Manager) currentRunner() graph.Runner {
	m.runnerMu.RLock()
	defer m.runnerMu.RUnlock()
	return m.runner
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Interact runs one conversation turn. An empty userID mints a fresh one,
// implicitly starting a new session. The lock is held for the whole turn so
// a user's history never interleaves.
func (m *Manager) Interact(ctx context.Context, userID string, prompt string) (*model.TurnResult, error) {
	if strings.TrimSpace(userID) == "" {
		userID = uuid.NewString()
		logx.Debug().Str("user_id", userID).Msg("Minted new session id")
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	result, err := m.currentRunner().Invoke(ctx, model.TurnInput{UserID: userID, Prompt: prompt})
	if err != nil {
		logx.Error().Str("user_id", userID).Err(err).Msg("Turn failed")
		return nil, errx.WrapBackend(err)
	}
	return result, nil
}

// Status returns the session summary for a user.
func (m *Manager) Status(ctx context.Context, userID string) (*model.SessionSummary, error) {
	summary, err := m.conversationRepo.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, errx.ErrSessionNotFound
	}
	return summary, nil
}

// StatusAll lists every active session, most recently active first.
func (m *Manager) StatusAll(ctx context.Context) ([]model.SessionSummary, error) {
	return m.conversationRepo.ListSessions(ctx)
}

// Delete removes a user's session and history.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	existed, err := m.conversationRepo.ClearHistory(ctx, userID)
	if err != nil {
		return err
	}
	if !existed {
		return errx.ErrSessionNotFound
	}
	logx.Info().Str("user_id", userID).Msg("Session deleted")
	return nil
}
