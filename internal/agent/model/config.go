package model

import "time"

// ================ Config ================

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"APP_PORT" default:"9201"`
}

// ResponseModelConfig configures the chat model used for answering turns.
type ResponseModelConfig struct {
	Model       string        `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32       `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
	Timeout     time.Duration `envconfig:"RESPONSE_TIMEOUT" default:"60s"`
}

// ConversationConfig configures the conversation store and history policy.
type ConversationConfig struct {
	// Store selects the backend: "memory" (default) or "redis".
	Store string `envconfig:"CONVERSATION_STORE" default:"memory"`
	// TTL applies to the redis backend only; zero disables expiry.
	TTL time.Duration `envconfig:"CONVERSATION_TTL" default:"15m"`
	// HistoryMaxMessages bounds the context handed to the model.
	// Zero means unbounded, matching observed source behavior; the stored
	// history itself is never truncated.
	HistoryMaxMessages int `envconfig:"HISTORY_MAX_MESSAGES" default:"0"`
	// Session eviction hooks for the memory backend. Zero disables each.
	SessionMaxAge      time.Duration `envconfig:"SESSION_MAX_AGE" default:"0"`
	SessionMaxCount    int           `envconfig:"SESSION_MAX_COUNT" default:"0"`
	SessionSweepEvery  time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"10m"`
}

// ToolsConfig configures remote tool support.
type ToolsConfig struct {
	Enabled        bool          `envconfig:"TOOLS_ENABLED" default:"false"`
	Servers        ProviderList  `envconfig:"MCP_SERVERS"`
	MaxDispatch    int           `envconfig:"TOOLS_MAX_DISPATCH" default:"10"`
	InvokeTimeout  time.Duration `envconfig:"TOOLS_INVOKE_TIMEOUT" default:"30s"`
	ConnectTimeout time.Duration `envconfig:"TOOLS_CONNECT_TIMEOUT" default:"10s"`
}

// PromptConfig feeds the system prompt template.
type PromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"assistant"`
}
