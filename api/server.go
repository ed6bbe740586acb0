// Package api exposes the kernel over HTTP.
//
//	POST /chat     {"query": "find me headphones"}
//	GET  /healthz
//	GET  /metrics  (when a metrics handler is configured)
//
// The actor is resolved from the request headers, never from the body.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tailored-agentic-units/concierge/kernel"
	"github.com/tailored-agentic-units/concierge/oracle"
)

// maxBodyBytes bounds a chat request body. Every query byte may be escaped
// as \uXXXX in JSON, plus room for the envelope.
func maxBodyBytes(maxQuery int) int64 {
	return int64(maxQuery)*6 + 1024
}

// Runner answers one turn. *kernel.Kernel implements it.
type Runner interface {
	RunTurn(ctx context.Context, query string, actorID int64) (*kernel.Result, error)
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Reply     string     `json:"reply"`
	RunID     string     `json:"run_id"`
	Steps     int        `json:"steps"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall summarises one tool invocation of the turn.
type ToolCall struct {
	Name    string `json:"name"`
	Worker  string `json:"worker"`
	IsError bool   `json:"is_error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
}

// Option configures the handler.
type Option func(*server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *server) { s.logger = l }
}

// WithMetrics mounts h at /metrics, typically promhttp.HandlerFor.
func WithMetrics(h http.Handler) Option {
	return func(s *server) { s.metrics = h }
}

type server struct {
	runner  Runner
	cfg     Config
	logger  *slog.Logger
	metrics http.Handler
}

// NewHandler creates the HTTP handler for runner.
func NewHandler(runner Runner, cfg Config, opts ...Option) http.Handler {
	s := &server{runner: runner, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.Post("/chat", s.chat)
	return r
}

// Serve runs the handler on cfg.Address until ctx ends, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg Config, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", cfg.Address)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) chat(w http.ResponseWriter, r *http.Request) {
	actor, err := s.cfg.resolveActor(r)
	if err != nil {
		s.logger.Warn("chat: rejected caller", "error", err)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
		return
	}

	if s.cfg.MaxQueryLength > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes(s.cfg.MaxQueryLength))
	}

	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if s.cfg.MaxQueryLength > 0 && len(body.Query) > s.cfg.MaxQueryLength {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("query exceeds %d bytes", s.cfg.MaxQueryLength),
		})
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: kernel.ErrEmptyQuery.Error()})
		return
	}

	ctx := r.Context()
	if s.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TurnTimeout)
		defer cancel()
	}

	result, err := s.runner.RunTurn(ctx, body.Query, actor)
	if err != nil {
		status := statusFor(err)
		s.logger.Error("chat: turn failed", "actor", actor, "status", status, "error", err)

		resp := ErrorResponse{Error: err.Error()}
		if result != nil {
			resp.RunID = result.RunID
		}
		writeJSON(w, status, resp)
		return
	}

	resp := ChatResponse{
		Reply: result.Reply,
		RunID: result.RunID,
		Steps: result.Steps,
	}
	for _, tc := range result.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{Name: tc.Name, Worker: tc.Worker, IsError: tc.IsError})
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, kernel.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, kernel.ErrInvalidActor):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, oracle.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(began),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
