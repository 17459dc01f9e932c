// Copyright 2025 James Ross
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/marketintel/engine/internal/catalog"
	"github.com/marketintel/engine/internal/intake"
	"github.com/marketintel/engine/internal/queue"
	"github.com/marketintel/engine/internal/tenant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds the HTTP-surface-specific settings the rest of the app's
// Config does not need to know about.
type Config struct {
	ListenAddr       string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSEnabled      bool
	CORSAllowOrigins []string
}

// Server is the tenant-facing HTTP API from §6: job submission, status,
// trend, and CRM-insight endpoints.
type Server struct {
	cfg     Config
	handler *Handler
	log     *zap.Logger
	server  *http.Server
}

func NewServer(cfg Config, store *queue.Store, cat catalog.Store, resolver tenant.Resolver, rdb *redis.Client, log *zap.Logger) *Server {
	in := intake.New(store)
	return &Server{
		cfg:     cfg,
		handler: NewHandler(store, in, cat, resolver, rdb, log),
		log:     log,
	}
}

// Start builds the route table and middleware chain and serves until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	handler := s.applyMiddleware(s.routes())

	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("starting api server", zap.String("addr", s.cfg.ListenAddr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// routes wires the Go 1.22+ method-and-wildcard ServeMux patterns to
// the handler methods; {id} is read back via r.PathValue.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	h := s.handler

	mux.HandleFunc("GET /api/v1/market-intelligence/health", h.Health)
	mux.HandleFunc("POST /api/v1/market-intelligence/jobs", h.SubmitJob)
	mux.HandleFunc("GET /api/v1/market-intelligence/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.GetJob(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET /api/v1/market-intelligence/jobs/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		h.GetJobStatus(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("POST /api/v1/market-intelligence/jobs/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		h.CancelJob(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET /api/v1/market-intelligence/trends", h.GetTrends)
	mux.HandleFunc("GET /api/v1/crm/products/{id}/insights", func(w http.ResponseWriter, r *http.Request) {
		h.GetProductInsights(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET /api/v1/crm/products/{id}/suggested-price", func(w http.ResponseWriter, r *http.Request) {
		h.GetSuggestedPrice(w, r, r.PathValue("id"))
	})

	return mux
}

func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = RecoveryMiddleware(s.log)(handler)
	handler = LoggingMiddleware(s.log)(handler)
	handler = RequestIDMiddleware()(handler)
	if s.cfg.CORSEnabled {
		handler = CORSMiddleware(s.cfg.CORSAllowOrigins)(handler)
	}
	return handler
}
