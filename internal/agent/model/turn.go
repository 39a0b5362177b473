package model

import (
	"github.com/cloudwego/eino/schema"
)

// ExtraDispatchLimit is set to true in the final assistant message's Extra
// when a turn was forcibly terminated because the tool-dispatch loop hit its
// iteration bound. The response content is still the best available answer.
const ExtraDispatchLimit = "dispatch_limit_reached"

// TurnInput is a single inbound turn: one user prompt for one user.
type TurnInput struct {
	UserID string `json:"user_id"`
	Prompt string `json:"prompt"`
}

// TurnResult is what the session manager hands back to the transport layer.
type TurnResult struct {
	UserID   string          `json:"user_id"`
	Response *schema.Message `json:"response"`
}

// TurnState stores per-invocation state for the Eino graph.
// Concurrency model:
//   - Registered as graph local state via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers
//     (WithStatePreHandler, WithStatePostHandler, compose.ProcessState),
//     which Eino serializes, so no additional locking is needed.
//   - For persistence use the ConversationRepository, never this struct.
type TurnState struct {
	UserID        string
	History       []*schema.Message // mutated only inside Eino state handlers
	DispatchCount int               // completed tool-dispatch rounds this turn
	LimitReached  bool              // set when the dispatch bound was hit
	ToolCallIDSeq int               // synthesizes tool_call_id when the provider omits it

	// Accumulated LLM cost (USD) across model invocations for this turn.
	TotalCostUSD float64
}
