package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// registryTool adapts one cached tool into an eino InvokableTool. Failures
// are absorbed into the payload: the tools node must always hand the model
// a tool message, never an execution error.
type registryTool struct {
	registry *Registry
	info     *schema.ToolInfo
	name     string
}

func (t *registryTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *registryTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	return t.registry.Invoke(ctx, t.name, argumentsInJSON).Payload(), nil
}

var _ tool.InvokableTool = (*registryTool)(nil)
