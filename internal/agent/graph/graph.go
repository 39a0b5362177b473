package graph

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/graph/conversations"
	"github.com/aleostudio/ai-agent/internal/agent/graph/nodes"
	"github.com/aleostudio/ai-agent/internal/agent/graph/observers"
	"github.com/aleostudio/ai-agent/internal/agent/model"
	"github.com/aleostudio/ai-agent/internal/agent/tools"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

// Runner executes one conversation turn against the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)
}

// Config holds everything needed to compose the full turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the chat
// model and the conversations manager.
type Config struct {
	APIKey  string
	BaseURL string

	ResponseModel    model.ResponseModelConfig
	Prompt           model.PromptConfig
	Conversation     model.ConversationConfig
	MaxDispatch      int
	ConversationRepo model.ConversationRepository

	// Registry supplies remote tools; nil or empty builds a tool-less graph.
	Registry *tools.Registry
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModel       einomodel.BaseChatModel
	ModelName       string
	MessagesManager *conversations.Manager
	Prompt          model.PromptConfig
	ToolSpecs       []model.ToolSpec
	BaseTools       []tool.BaseTool
	MaxDispatch     int
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	return &model.TurnResult{UserID: in.UserID, Response: out}, nil
}

// BuildTurnGraph composes the chat model, the conversations manager and the
// registry-backed tools, builds the graph and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	gc := &GraphConfig{
		ChatModel:       cms.Response,
		ModelName:       cms.ResponseModelName,
		MessagesManager: conversations.NewManager(cfg.ConversationRepo, cfg.Conversation),
		Prompt:          cfg.Prompt,
		MaxDispatch:     cfg.MaxDispatch,
	}

	if cfg.Registry != nil && cfg.Registry.Len() > 0 {
		if err := cms.BindToolsToResponseModel(ctx, cfg.Registry.ToolInfos()); err != nil {
			return nil, err
		}
		gc.ToolSpecs = cfg.Registry.List()
		gc.BaseTools = cfg.Registry.BaseTools()
	}

	runnable, err := BuildGraph(ctx, gc)
	if err != nil {
		return nil, err
	}

	logx.Debug().Int("tools", len(gc.ToolSpecs)).Msg("Turn graph built")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and compiles the turn graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	builder.addNodes()

	if len(config.BaseTools) > 0 {
		if err := builder.setupTools(ctx); err != nil {
			return nil, err
		}
	}

	if err := builder.addEdges(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds the context builder and chat model nodes
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeContextBuilder,
		nodes.NewContextBuilderNode(b.config.MessagesManager, b.config.Prompt, b.config.ToolSpecs),
		compose.WithStatePreHandler(nodes.NewContextBuilderPreHandler()),
	)

	b.graph.AddChatModelNode(nodes.NodeResponseChatModel,
		b.config.ChatModel,
		compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(b.config.MaxDispatch)),
		compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(b.config.MessagesManager, b.config.ModelName)),
	)
}

// setupTools adds the tool executor node wired to the registry tools
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.BaseTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Hallucinated or malformed tool calls get a structured fallback
			// the model can still reason about.
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call, returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return tools.SanitizeArguments(name, arguments)
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler()),
		compose.WithStatePostHandler(nodes.NewToolExecutorPostHandler(b.config.MessagesManager)),
	)
	return nil
}

// addEdges wires the flow; with tools present the chat model branches
// between another dispatch round and the end of the turn.
func (b *GraphBuilder) addEdges() error {
	b.graph.AddEdge(compose.START, nodes.NodeContextBuilder)
	b.graph.AddEdge(nodes.NodeContextBuilder, nodes.NodeResponseChatModel)

	if len(b.config.BaseTools) == 0 {
		b.graph.AddEdge(nodes.NodeResponseChatModel, compose.END)
		return nil
	}

	b.graph.AddEdge(nodes.NodeToolExecutor, nodes.NodeResponseChatModel)

	dispatchBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseChatModel, dispatchBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding dispatch branch")
		return fmt.Errorf("error adding dispatch branch: %w", err)
	}
	return nil
}

// compile finalizes the graph with a step cap covering the worst case of a
// full dispatch loop.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	maxSteps := 10 + b.config.MaxDispatch*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
