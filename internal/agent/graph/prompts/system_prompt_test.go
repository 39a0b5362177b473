package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/aleostudio/ai-agent/internal/agent/model"
)

func TestRenderSystemWithoutTools(t *testing.T) {
	out, err := RenderSystem(context.Background(), model.PromptConfig{AssistantName: "Aleo"}, nil)
	if err != nil {
		t.Fatalf("RenderSystem: %v", err)
	}
	if !strings.Contains(out, "You are Aleo, a helpful assistant") {
		t.Fatalf("prompt missing assistant name: %q", out)
	}
	if strings.Contains(out, "external tools") {
		t.Fatalf("tool variant rendered without tools: %q", out)
	}
}

func TestRenderSystemWithTools(t *testing.T) {
	tools := []model.ToolSpec{
		{Name: "calculate", Description: "Evaluate arithmetic expressions"},
		{Name: "get_datetime", Description: "Current date and time"},
	}
	out, err := RenderSystem(context.Background(), model.PromptConfig{AssistantName: "Aleo"}, tools)
	if err != nil {
		t.Fatalf("RenderSystem: %v", err)
	}
	if !strings.Contains(out, "external tools") {
		t.Fatalf("tool variant not rendered: %q", out)
	}
	for _, tool := range tools {
		if !strings.Contains(out, tool.Name+": "+tool.Description) {
			t.Fatalf("prompt missing tool %s: %q", tool.Name, out)
		}
	}
}
