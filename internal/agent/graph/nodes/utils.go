package nodes

import (
	"github.com/aleostudio/ai-agent/internal/agent/model"
)

// Node names used when wiring the graph.
const (
	NodeContextBuilder    = "ContextBuilder"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
)

const DefaultMaxDispatch = 10

// normalizeMaxDispatch returns a sane default when the provided value is invalid.
func normalizeMaxDispatch(n int) int {
	if n <= 0 {
		return DefaultMaxDispatch
	}
	return n
}

// checkAndMarkDispatchLimit evaluates whether another dispatch round would
// exceed the bound and, if so, marks the state. Returns true when marked now.
func checkAndMarkDispatchLimit(state *model.TurnState, max int) bool {
	max = normalizeMaxDispatch(max)
	if !state.LimitReached && state.DispatchCount >= max {
		state.LimitReached = true
		return true
	}
	return false
}
