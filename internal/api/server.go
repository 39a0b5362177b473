// Package api implements the HTTP surface of the agent service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aleostudio/ai-agent/internal/agent/graph"
	"github.com/aleostudio/ai-agent/internal/agent/model"
	"github.com/aleostudio/ai-agent/internal/agent/session"
	"github.com/aleostudio/ai-agent/internal/agent/tools"
	errx "github.com/aleostudio/ai-agent/internal/core/error"
	logx "github.com/aleostudio/ai-agent/pkg/logger"
)

// Server is the HTTP API server.
type Server struct {
	cfg      model.ServerConfig
	sessions *session.Manager
	registry *tools.Registry // nil when tools are disabled

	// rebuild recompiles the turn graph against the refreshed registry.
	rebuild func(ctx context.Context) (graph.Runner, error)

	server *http.Server
}

// NewServer creates the API server. registry and rebuild may be nil when
// tool support is disabled; the tools endpoints then report an empty set.
func NewServer(cfg model.ServerConfig, sessions *session.Manager, registry *tools.Registry, rebuild func(ctx context.Context) (graph.Runner, error)) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		registry: registry,
		rebuild:  rebuild,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /interact", s.handleInteract)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /tools", s.handleToolsList)
	mux.HandleFunc("POST /tools/refresh", s.handleToolsRefresh)

	mux.HandleFunc("GET /sessions", s.handleSessionList)
	mux.HandleFunc("GET /sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleSessionDelete)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // model turns can be slow
	}

	logx.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logx.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type interactRequest struct {
	UserID string `json:"user_id"`
	Prompt string `json:"prompt"`
}

type interactResponse struct {
	UserID               string  `json:"user_id"`
	Response             string  `json:"response"`
	DispatchLimitReached bool    `json:"dispatch_limit_reached,omitempty"`
	TotalCostUSD         float64 `json:"total_cost_usd,omitempty"`
}

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	var req interactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errx.New(err, http.StatusBadRequest, "malformed request body"))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, errx.New(nil, http.StatusBadRequest, "prompt is required"))
		return
	}

	result, err := s.sessions.Interact(r.Context(), req.UserID, req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := interactResponse{
		UserID:   result.UserID,
		Response: result.Response.Content,
	}
	if v, ok := result.Response.Extra[model.ExtraDispatchLimit].(bool); ok && v {
		resp.DispatchLimitReached = true
	}
	if v, ok := result.Response.Extra["usage_cost_total_usd"].(float64); ok {
		resp.TotalCostUSD = v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "healthy", "tools": 0}
	if s.registry != nil {
		resp["tools"] = s.registry.Len()
		resp["failed_providers"] = len(s.registry.Failures())
	}
	writeJSON(w, http.StatusOK, resp)
}

type toolsResponse struct {
	Tools    []model.ToolSpec  `json:"tools"`
	Failures map[string]string `json:"failures,omitempty"`
}

func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request) {
	resp := toolsResponse{Tools: []model.ToolSpec{}}
	if s.registry != nil {
		resp.Tools = s.registry.List()
		resp.Failures = s.registry.Failures()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToolsRefresh(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil || s.rebuild == nil {
		writeJSON(w, http.StatusOK, toolsResponse{Tools: []model.ToolSpec{}})
		return
	}

	s.registry.Refresh(r.Context())

	runner, err := s.rebuild(r.Context())
	if err != nil {
		logx.Error().Err(err).Msg("Graph rebuild after tool refresh failed")
		writeError(w, errx.New(err, http.StatusInternalServerError, "tool refresh failed"))
		return
	}
	s.sessions.SetRunner(runner)

	writeJSON(w, http.StatusOK, toolsResponse{
		Tools:    s.registry.List(),
		Failures: s.registry.Failures(),
	})
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.StatusAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	summary, err := s.sessions.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// usually the client went away mid-response
		logx.Debug().Err(err).Msg("failed to write JSON response")
	}
}

// writeError maps application errors onto HTTP responses; anything that is
// not an AppError becomes an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, map[string]string{"error": appErr.Message})
		return
	}
	logx.Error().Err(err).Msg("Unclassified request error")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": errx.SystemErrorMessage})
}
