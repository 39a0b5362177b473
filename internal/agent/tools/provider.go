package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aleostudio/ai-agent/internal/agent/model"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

// Provider is the fixed capability set every remote tool provider exposes:
// list the tools it hosts and invoke one of them.
type Provider interface {
	Name() string
	Tools(ctx context.Context) ([]model.ToolSpec, error)
	Call(ctx context.Context, tool string, argsJSON string) (string, error)
}

// MCPProvider talks to a single MCP server over stdio, SSE or streamable
// HTTP. The session is established lazily and re-established after a lost
// connection.
type MCPProvider struct {
	cfg model.ToolProviderConfig

	mu      sync.Mutex
	session *mcp.ClientSession
}

func NewMCPProvider(cfg model.ToolProviderConfig) *MCPProvider {
	return &MCPProvider{cfg: cfg}
}

func (p *MCPProvider) Name() string {
	return p.cfg.Name
}

// connect returns the current session, dialing the server when needed.
func (p *MCPProvider) connect(ctx context.Context) (*mcp.ClientSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return p.session, nil
	}

	transport, err := p.transport(ctx)
	if err != nil {
		return nil, err
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "ai-agent", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", p.cfg.Name, err)
	}
	p.session = session
	logx.Info().Str("provider", p.cfg.Name).Str("transport", p.cfg.Transport).Msg("connected to tool provider")
	return session, nil
}

func (p *MCPProvider) transport(ctx context.Context) (mcp.Transport, error) {
	switch p.cfg.Transport {
	case "stdio":
		parts := strings.Fields(p.cfg.Address)
		if len(parts) == 0 {
			return nil, fmt.Errorf("provider %s: empty stdio command", p.cfg.Name)
		}
		// The subprocess outlives the connect call; its lifetime is bound
		// to the session, not to the dial context.
		cmd := exec.Command(parts[0], parts[1:]...)
		return &mcp.CommandTransport{Command: cmd}, nil
	case "sse":
		return &mcp.SSEClientTransport{Endpoint: p.cfg.Address}, nil
	case "http":
		return &mcp.StreamableClientTransport{Endpoint: p.cfg.Address}, nil
	default:
		return nil, fmt.Errorf("provider %s: unsupported transport %q", p.cfg.Name, p.cfg.Transport)
	}
}

// drop discards a session after a transport failure so the next call redials.
func (p *MCPProvider) drop(session *mcp.ClientSession) {
	p.mu.Lock()
	if p.session == session {
		p.session = nil
	}
	p.mu.Unlock()
	if session != nil {
		_ = session.Close()
	}
}

func (p *MCPProvider) Tools(ctx context.Context) ([]model.ToolSpec, error) {
	session, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		p.drop(session)
		return nil, fmt.Errorf("list tools %s: %w", p.cfg.Name, err)
	}

	specs := make([]model.ToolSpec, 0, len(res.Tools))
	for _, t := range res.Tools {
		spec := model.ToolSpec{
			Provider:    p.cfg.Name,
			Name:        t.Name,
			Description: t.Description,
		}
		if t.InputSchema != nil {
			if b, err := json.Marshal(t.InputSchema); err == nil {
				var m map[string]any
				if err := json.Unmarshal(b, &m); err == nil {
					spec.InputSchema = m
				}
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (p *MCPProvider) Call(ctx context.Context, tool string, argsJSON string) (string, error) {
	session, err := p.connect(ctx)
	if err != nil {
		return "", err
	}

	args := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("tool %s: malformed arguments: %w", tool, err)
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		p.drop(session)
		return "", fmt.Errorf("call %s/%s: %w", p.cfg.Name, tool, err)
	}

	text := contentText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("tool %s returned error: %s", tool, text)
	}
	return text, nil
}

// Close shuts down the provider session, if any.
func (p *MCPProvider) Close() error {
	p.mu.Lock()
	session := p.session
	p.session = nil
	p.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Close()
}

// contentText joins all text content blocks; non-text blocks become inline
// markers so the model still sees that something was returned.
func contentText(blocks []mcp.Content) string {
	var parts []string
	for _, b := range blocks {
		switch c := b.(type) {
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		default:
			parts = append(parts, fmt.Sprintf("[%T]", b))
		}
	}
	return strings.Join(parts, "\n")
}

var _ Provider = (*MCPProvider)(nil)
