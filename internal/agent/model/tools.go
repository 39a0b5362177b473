package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolSpec describes one callable tool as cached by the registry.
// Names are unique within a registry snapshot; when two providers expose the
// same name, the first-configured provider wins.
type ToolSpec struct {
	Provider    string         `json:"provider"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ToolInvocationResult carries either the tool output or a failure
// descriptor, never both.
type ToolInvocationResult struct {
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Payload serializes the result into the string handed back to the model as
// tool message content. Failures become a structured error payload so the
// conversation protocol always receives some tool message.
func (r ToolInvocationResult) Payload() string {
	if r.Error == "" {
		return r.Output
	}
	b, err := json.Marshal(map[string]any{
		"success": false,
		"error":   r.Error,
		"tool":    r.Name,
	})
	if err != nil {
		return fmt.Sprintf("{\"success\":false,\"tool\":%q}", r.Name)
	}
	return string(b)
}

// ToolProviderConfig is one remote tool provider connection descriptor.
type ToolProviderConfig struct {
	Name      string `json:"name"`
	Transport string `json:"transport"` // stdio | sse | http
	Address   string `json:"address"`   // command line for stdio, URL otherwise
	Enabled   *bool  `json:"enabled,omitempty"`
}

// IsEnabled defaults to true when the flag is omitted.
func (c ToolProviderConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Validate checks the descriptor for the chosen transport.
func (c ToolProviderConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("tool provider: name is required")
	}
	switch c.Transport {
	case "stdio":
		if strings.TrimSpace(c.Address) == "" {
			return fmt.Errorf("tool provider %s: stdio transport requires a command in address", c.Name)
		}
	case "sse", "http":
		if !strings.HasPrefix(c.Address, "http://") && !strings.HasPrefix(c.Address, "https://") {
			return fmt.Errorf("tool provider %s: %s transport requires an http(s) address", c.Name, c.Transport)
		}
	default:
		return fmt.Errorf("tool provider %s: unsupported transport %q", c.Name, c.Transport)
	}
	return nil
}

// ProviderList is the MCP_SERVERS env value: a JSON array of provider
// descriptors. Implements envconfig.Decoder.
type ProviderList []ToolProviderConfig

// Decode parses the JSON array and validates every entry.
func (p *ProviderList) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*p = nil
		return nil
	}
	var list []ToolProviderConfig
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return fmt.Errorf("parse MCP_SERVERS: %w", err)
	}
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	*p = list
	return nil
}

// EnabledProviders filters out disabled entries, preserving configured order.
func (p ProviderList) EnabledProviders() []ToolProviderConfig {
	out := make([]ToolProviderConfig, 0, len(p))
	for _, c := range p {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}
