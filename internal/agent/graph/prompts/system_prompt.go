package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/model"
)

//go:embed template/system_prompt.txt
var systemPrompt string

// RenderSystem renders the assistant system prompt. When tools are present
// the prompt switches to the tool-aware variant and lists every tool the
// registry currently exposes. Rendering goes through the Eino prompt
// component so prompt callbacks fire.
func RenderSystem(ctx context.Context, config model.PromptConfig, tools []model.ToolSpec) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPrompt),
	)
	vars := map[string]any{
		"AssistantName": config.AssistantName,
		"HasTools":      len(tools) > 0,
		"Tools":         tools,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}
