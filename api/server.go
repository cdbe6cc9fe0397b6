// Package api exposes the question-answering service over HTTP.
//
// Endpoints:
//
//	POST /v1/chat/completions  →  grounded answer (JSON or SSE stream)
//	GET  /health               →  liveness probe
//	GET  /ready                →  readiness probe
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/kura/internal/answer"
	"github.com/koopa0/kura/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because answers stream token by token.
	WriteTimeout = 120 * time.Second

	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the answering API.
type Server struct {
	mux        *http.ServeMux
	logger     log.Logger
	rateBurst  int
	trustProxy bool

	health *HealthHandler
	chat   *ChatHandler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateBurst overrides the per-IP rate limit burst size.
func WithRateBurst(burst int) ServerOption {
	return func(s *Server) {
		if burst > 0 {
			s.rateBurst = burst
		}
	}
}

// WithTrustProxy makes the rate limiter honor X-Real-IP and
// X-Forwarded-For. Only enable behind a reverse proxy that sets them.
func WithTrustProxy() ServerOption {
	return func(s *Server) { s.trustProxy = true }
}

// NewServer creates a server with all routes registered.
func NewServer(pool *pgxpool.Pool, answerer *answer.Answerer, logger log.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		logger:    logger,
		rateBurst: defaultRateBurst,
		health:    NewHealthHandler(pool, logger),
		chat:      NewChatHandler(answerer, logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s
}

// Handler returns the mux with middleware applied. Order: recovery →
// request ID → logging → rate limit → routes. Refill is one token per
// second per IP.
func (s *Server) Handler() http.Handler {
	rl := newRateLimiter(1.0, s.rateBurst)
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
		rateLimitMiddleware(rl, s.trustProxy, s.logger),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
