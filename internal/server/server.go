// Package server exposes the enforcement pipeline to a host agent
// runtime over HTTP: one endpoint per lifecycle hook, plus health and
// metrics. The server owns the compiled pipeline and hot-reloads it
// when the policy file changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/model"
	"github.com/rkalmar/mandate/internal/pipeline"
	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/registry"
	"github.com/rkalmar/mandate/internal/session"
)

// Config holds guard server configuration.
type Config struct {
	Addr       string
	PolicyPath string
	AuditPath  string

	// Per-client request rate limiting.
	RatePerSecond float64
	RateBurst     int
}

// Server drives the pipeline for HTTP clients. The compiled pipeline is
// swapped atomically on hot-reload; in-flight requests keep the pipeline
// they started with.
type Server struct {
	cfg      Config
	log      *zap.Logger
	reg      *registry.Registry
	sessions *session.Store
	store    *audit.Store
	metrics  *Metrics
	limiter  *clientLimiter

	mu  sync.RWMutex
	pol *policy.Policy
	pl  *pipeline.Pipeline
}

// New loads and validates the policy, opens the audit store, and
// compiles the pipeline.
func New(cfg Config, reg *registry.Registry, log *zap.Logger) (*Server, error) {
	if reg == nil {
		reg = registry.New()
	}
	if log == nil {
		log = zap.NewNop()
	}

	store, err := audit.Open(cfg.AuditPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		reg:      reg,
		sessions: session.NewStore(nil),
		store:    store,
		metrics:  NewMetrics(),
		limiter:  newClientLimiter(cfg.RatePerSecond, cfg.RateBurst),
	}

	if err := s.ReloadPolicy(); err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// ReloadPolicy re-parses and re-validates the policy file and swaps in
// a freshly compiled pipeline. On any failure the previous pipeline
// stays active.
func (s *Server) ReloadPolicy() error {
	pol, err := policy.ParseFile(s.cfg.PolicyPath)
	if err != nil {
		return err
	}

	result := policy.Validate(pol)
	if !result.Valid {
		return fmt.Errorf("policy %q is inconsistent: %v", pol.Identity.Name, result.Errors)
	}
	for _, w := range result.Warnings {
		s.log.Warn("policy warning", zap.String("policy", pol.Identity.Name), zap.String("warning", w))
	}

	pl, err := pipeline.New(pol, pipeline.Deps{
		Registry: s.reg,
		Sessions: s.sessions,
		Recorder: s.store,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pol = pol
	s.pl = pl
	s.mu.Unlock()

	s.log.Info("policy loaded",
		zap.String("policy", pol.Identity.Name),
		zap.String("version", pol.Identity.Version))
	return nil
}

// hookRequest is the wire shape shared by all three hook endpoints.
type hookRequest struct {
	SessionID  string           `json:"session_id"`
	RetryCount int              `json:"retry_count"`
	Messages   []model.Message  `json:"messages"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
}

// hookResponse reports the pipeline outcome to the host runtime.
type hookResponse struct {
	SessionID string          `json:"session_id"`
	Action    string          `json:"action"` // continue | abort
	Reason    string          `json:"reason,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
	Messages  []model.Message `json:"messages,omitempty"`
}

// Handler returns the HTTP routing for the guard server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/hooks/input", s.handleHook("input"))
	mux.HandleFunc("POST /v1/hooks/step", s.handleHook("step"))
	mux.HandleFunc("POST /v1/hooks/result", s.handleHook("result"))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return s.rateLimited(mux)
}

func (s *Server) handleHook(hook string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}

		s.mu.RLock()
		pl := s.pl
		s.mu.RUnlock()

		turn := &pipeline.Turn{
			SessionID:  req.SessionID,
			Messages:   req.Messages,
			RetryCount: req.RetryCount,
		}

		var res pipeline.Result
		switch hook {
		case "input":
			res = pl.RunInput(turn)
		case "step":
			res = pl.RunStep(turn, req.ToolCalls)
		default:
			res = pl.RunResult(turn)
		}

		s.metrics.ObserveHook(hook, res)

		resp := hookResponse{SessionID: req.SessionID}
		if res.Aborted {
			resp.Action = "abort"
			resp.Reason = res.Reason
			resp.Retryable = res.Retryable
			s.log.Info("abort",
				zap.String("hook", hook),
				zap.String("session", req.SessionID),
				zap.Bool("retryable", res.Retryable),
				zap.String("reason", res.Reason))
		} else {
			resp.Action = "continue"
			resp.Messages = res.Messages
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	name := s.pol.Identity.Name
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"policy": name,
	})
}

// rateLimited rejects clients that exceed the per-client token bucket.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			s.metrics.ObserveRateLimited()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// closes the audit store.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("guard server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.store.Close()
		return nil
	case err := <-errCh:
		s.store.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
