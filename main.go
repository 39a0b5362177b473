package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/aleostudio/ai-agent/internal/agent/graph"
	"github.com/aleostudio/ai-agent/internal/agent/model"
	"github.com/aleostudio/ai-agent/internal/agent/repo"
	"github.com/aleostudio/ai-agent/internal/agent/session"
	"github.com/aleostudio/ai-agent/internal/agent/tools"
	"github.com/aleostudio/ai-agent/internal/api"
	"github.com/aleostudio/ai-agent/internal/core"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
	pkgredis "github.com/aleostudio/ai-agent/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Server model.ServerConfig
	Redis  pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Response     model.ResponseModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Tools        model.ToolsConfig
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Conversation store
	var conversationRepo model.ConversationRepository
	switch cfg.Conversation.Store {
	case "redis":
		rdb, err := cfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		conversationRepo = repo.NewRedisRepository(rdb, cfg.Conversation.TTL)
		logx.Info().Str("store", "redis").Msg("Conversation store ready")
	default:
		mem := repo.NewMemoryRepository()
		conversationRepo = mem
		startSweeper(ctx, mem, cfg.Conversation)
		logx.Info().Str("store", "memory").Msg("Conversation store ready")
	}

	// Remote tools
	var registry *tools.Registry
	if cfg.Tools.Enabled {
		providers := make([]tools.Provider, 0)
		for _, pc := range cfg.Tools.Servers.EnabledProviders() {
			providers = append(providers, tools.NewMCPProvider(pc))
		}
		registry = tools.NewRegistry(providers, cfg.Tools.InvokeTimeout)

		refreshCtx, cancel := context.WithTimeout(ctx, cfg.Tools.ConnectTimeout)
		registry.Refresh(refreshCtx)
		cancel()
		defer registry.Close()
	}

	buildRunner := func(ctx context.Context) (graph.Runner, error) {
		return graph.BuildTurnGraph(ctx, graph.Config{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			ResponseModel:    cfg.Response,
			Prompt:           cfg.Prompt,
			Conversation:     cfg.Conversation,
			MaxDispatch:      cfg.Tools.MaxDispatch,
			ConversationRepo: conversationRepo,
			Registry:         registry,
		})
	}

	runner, err := buildRunner(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build turn graph")
	}

	sessions := session.NewManager(runner, conversationRepo)
	server := api.NewServer(cfg.Server, sessions, registry, buildRunner)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logx.Fatal().Err(err).Msg("API server failed")
		}
	case <-ctx.Done():
		logx.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("Shutdown error")
		}
	}
}

// startSweeper evicts idle or excess in-memory sessions on an interval.
// Disabled unless an age or count bound is configured.
func startSweeper(ctx context.Context, mem *repo.MemoryRepository, cfg model.ConversationConfig) {
	if cfg.SessionMaxAge <= 0 && cfg.SessionMaxCount <= 0 {
		return
	}
	interval := cfg.SessionSweepEvery
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mem.Sweep(cfg.SessionMaxAge, cfg.SessionMaxCount); n > 0 {
					logx.Info().Int("evicted", n).Msg("Session sweep")
				}
			}
		}
	}()
}
