package tools

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/model"
	errx "github.com/aleostudio/ai-agent/internal/core/error"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

// Registry caches the tools exposed by all configured providers and routes
// invocations to the provider owning a given name. The cache is read-mostly:
// Refresh builds a complete new snapshot and swaps it in atomically, so
// readers never observe a partially rebuilt list.
type Registry struct {
	providers     []Provider // configuration order
	invokeTimeout time.Duration
	snap          atomic.Pointer[snapshot]
}

type snapshot struct {
	specs    []model.ToolSpec
	owners   map[string]Provider
	failures map[string]string // provider name -> last refresh failure
}

func NewRegistry(providers []Provider, invokeTimeout time.Duration) *Registry {
	r := &Registry{providers: providers, invokeTimeout: invokeTimeout}
	r.snap.Store(&snapshot{owners: map[string]Provider{}, failures: map[string]string{}})
	return r
}

// Refresh queries every provider for its tool list. A provider failure is
// recorded and its tools omitted; it never blocks tools from the other
// providers. Safe to call repeatedly and concurrently with reads.
func (r *Registry) Refresh(ctx context.Context) {
	next := &snapshot{
		owners:   make(map[string]Provider),
		failures: make(map[string]string),
	}

	for _, p := range r.providers {
		specs, err := p.Tools(ctx)
		if err != nil {
			wrapped := errx.WrapProvider(p.Name(), err)
			logx.Warn().Err(wrapped).Str("provider", p.Name()).Msg("tool provider refresh failed, skipping")
			next.failures[p.Name()] = wrapped.Error()
			continue
		}
		for _, spec := range specs {
			if _, dup := next.owners[spec.Name]; dup {
				// Duplicate names across providers are a configuration
				// smell, not an error: first-configured provider wins.
				logx.Warn().Str("tool", spec.Name).Str("provider", p.Name()).Msg("duplicate tool name, keeping first provider")
				continue
			}
			next.owners[spec.Name] = p
			next.specs = append(next.specs, spec)
		}
	}

	r.snap.Store(next)
	logx.Info().Int("tools", len(next.specs)).Int("failed_providers", len(next.failures)).Msg("tool registry refreshed")
}

// List returns the cached tool specs: providers in configuration order,
// tools in provider-reported order.
func (r *Registry) List() []model.ToolSpec {
	s := r.snap.Load()
	out := make([]model.ToolSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Failures reports the providers skipped during the last refresh.
func (r *Registry) Failures() map[string]string {
	s := r.snap.Load()
	out := make(map[string]string, len(s.failures))
	for k, v := range s.failures {
		out[k] = v
	}
	return out
}

// Len returns the number of cached tools.
func (r *Registry) Len() int {
	return len(r.snap.Load().specs)
}

// Invoke resolves the provider owning name and forwards the call. Every
// failure mode (unknown name, timeout, transport error, remote error) is
// normalized into the result's Error field so the caller can always append
// a tool message and keep the conversation protocol intact.
func (r *Registry) Invoke(ctx context.Context, name string, argsJSON string) model.ToolInvocationResult {
	result := model.ToolInvocationResult{Name: name}

	owner, ok := r.snap.Load().owners[name]
	if !ok {
		result.Error = "unknown tool"
		return result
	}

	if r.invokeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.invokeTimeout)
		defer cancel()
	}

	out, err := owner.Call(ctx, name, argsJSON)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Error = "tool invocation timed out"
		} else {
			result.Error = err.Error()
		}
		logx.Warn().Err(err).Str("tool", name).Str("provider", owner.Name()).Msg("tool invocation failed")
		return result
	}

	result.Output = out
	return result
}

// ToolInfos converts the cached specs into eino tool descriptors for
// binding to the chat model.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	specs := r.snap.Load().specs
	infos := make([]*schema.ToolInfo, 0, len(specs))
	for _, spec := range specs {
		infos = append(infos, toToolInfo(spec))
	}
	return infos
}

// BaseTools returns eino tool implementations that dispatch through the
// registry, one per cached tool.
func (r *Registry) BaseTools() []tool.BaseTool {
	specs := r.snap.Load().specs
	out := make([]tool.BaseTool, 0, len(specs))
	for _, spec := range specs {
		out = append(out, &registryTool{registry: r, info: toToolInfo(spec), name: spec.Name})
	}
	return out
}

// Close shuts down every provider that supports it.
func (r *Registry) Close() {
	for _, p := range r.providers {
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				logx.Debug().Err(err).Str("provider", p.Name()).Msg("provider close")
			}
		}
	}
}
