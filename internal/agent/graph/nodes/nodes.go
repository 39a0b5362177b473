package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/graph/conversations"
	"github.com/aleostudio/ai-agent/internal/agent/graph/prompts"
	"github.com/aleostudio/ai-agent/internal/agent/model"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

// NewContextBuilderPreHandler seeds per-turn state before anything runs.
func NewContextBuilderPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		s.UserID = in.UserID
		// Reset dispatch counters for each new turn
		s.DispatchCount = 0
		s.LimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewContextBuilderNode records the incoming prompt and assembles the model
// context: system prompt first, then the stored history including the new
// user message.
func NewContextBuilderNode(
	mm *conversations.Manager,
	promptConfig model.PromptConfig,
	toolSpecs []model.ToolSpec,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.TurnInput) ([]*schema.Message, error) {
		if strings.TrimSpace(input.Prompt) == "" {
			return nil, fmt.Errorf("empty prompt")
		}

		if err := mm.RecordUserMessage(ctx, input.UserID, input.Prompt); err != nil {
			return nil, fmt.Errorf("record user message: %w", err)
		}

		systemPrompt, err := prompts.RenderSystem(ctx, promptConfig, toolSpecs)
		if err != nil {
			return nil, fmt.Errorf("render system prompt: %w", err)
		}

		messages, err := mm.BuildModelContext(ctx, input.UserID, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("build model context: %w", err)
		}
		return messages, nil
	})
}

// NewResponseChatModelPreHandler accumulates incoming messages into turn
// state and hands the model the full window. When the dispatch bound is hit
// a wrap-up notice is appended so the model closes out with what it has.
func NewResponseChatModelPreHandler(maxDispatch int) func(context.Context, []*schema.Message, *model.TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.TurnState) ([]*schema.Message, error) {
		// Gemini may hand back tool results without tool_call_id; recover it
		// from the assistant message that requested the calls.
		backfillToolCallIDs(in, state.History)

		state.History = append(state.History, in...)

		if checkAndMarkDispatchLimit(state, maxDispatch) {
			wrapUp := schema.SystemMessage(fmt.Sprintf(
				"SYSTEM NOTICE: You have reached the maximum tool dispatch limit (%d). "+
					"Synthesize a helpful response from the information already gathered and "+
					"acknowledge any gaps you could not fill.",
				normalizeMaxDispatch(maxDispatch),
			))
			state.History = append(state.History, wrapUp)
			logx.Warn().
				Str("user_id", state.UserID).
				Int("dispatch_count", state.DispatchCount).
				Msg("Tool dispatch limit reached, asking model to wrap up")
		}

		return state.History, nil
	}
}

// NewResponseChatModelPostHandler normalizes the model output, enforces the
// dispatch bound and persists the assistant message.
func NewResponseChatModelPostHandler(
	mm *conversations.Manager,
	modelName string,
) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("chat model returned nil message")
		}

		logUsageCost(out, state, modelName)

		// Some providers omit tool_call IDs; synthesize stable ones so the
		// results can be paired back to this message.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		// A model that keeps requesting tools past the bound gets its calls
		// dropped: the content is the answer, and the stored history never
		// contains a call without its results.
		if state.LimitReached && len(out.ToolCalls) > 0 {
			logx.Warn().
				Str("user_id", state.UserID).
				Int("dropped_tool_calls", len(out.ToolCalls)).
				Msg("Dispatch limit reached, dropping further tool calls")
			out.ToolCalls = nil
		}
		if state.LimitReached {
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra[model.ExtraDispatchLimit] = true
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}

		if err := mm.RecordAssistantMessage(ctx, state.UserID, out); err != nil {
			logx.Error().
				Str("user_id", state.UserID).
				Err(err).
				Msg("Error saving assistant message")
		}

		return out, nil
	}
}

// NewToolExecutorCondition routes to the tool executor when the model asked
// for tools and the dispatch bound still has room.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			limitReached = state.LimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Dispatch limit reached, routing to end")
			return compose.END, nil
		}
		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		logx.Debug().Msg("No tool calls, continuing to end")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler counts a dispatch round before it runs.
func NewToolExecutorPreHandler() func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.TurnState) (*schema.Message, error) {
		state.DispatchCount++
		logx.Debug().
			Int("dispatch_count", state.DispatchCount).
			Str("user_id", state.UserID).
			Msg("Tool dispatch round")
		return in, nil
	}
}

// NewToolExecutorPostHandler persists tool results right after execution so
// the stored history always pairs them with the requesting message.
func NewToolExecutorPostHandler(mm *conversations.Manager) func(context.Context, []*schema.Message, *model.TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, state *model.TurnState) ([]*schema.Message, error) {
		if err := mm.RecordToolMessages(ctx, state.UserID, out); err != nil {
			logx.Error().
				Str("user_id", state.UserID).
				Err(err).
				Msg("Error saving tool results")
		}
		return out, nil
	}
}

// backfillToolCallIDs fills missing tool_call_id fields on tool results from
// the most recent assistant message carrying tool calls, matching by order.
func backfillToolCallIDs(in []*schema.Message, history []*schema.Message) {
	var calls []schema.ToolCall
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg != nil && msg.Role == schema.Assistant && len(msg.ToolCalls) > 0 {
			calls = msg.ToolCalls
			break
		}
	}
	if len(calls) == 0 {
		return
	}

	n := 0
	for _, msg := range in {
		if msg == nil || msg.Role != schema.Tool {
			continue
		}
		if strings.TrimSpace(msg.ToolCallID) == "" && n < len(calls) {
			msg.ToolCallID = calls[n].ID
		}
		n++
	}
}

// logUsageCost computes and logs the USD cost of a model invocation when the
// provider reported token usage.
func logUsageCost(out *schema.Message, state *model.TurnState, modelName string) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(usage, pricing)
	state.TotalCostUSD += totalC

	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}
	out.Extra["usage_cost_total_usd"] = state.TotalCostUSD

	logx.Debug().
		Str("user_id", state.UserID).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}
