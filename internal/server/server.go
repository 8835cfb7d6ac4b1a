// Package server provides the HTTP API for quizforge.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"quizforge/internal/collector"
	"quizforge/internal/config"
	"quizforge/internal/ocr"
	"quizforge/internal/session"
)

// Server is the HTTP server for the quizforge API.
type Server struct {
	collector *collector.Collector
	sessions  *session.Manager
	ocr       *ocr.Client // nil disables uploads
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. A nil ocr
// client makes the uploads endpoint return 503.
func NewServer(
	c *collector.Collector,
	sessions *session.Manager,
	ocrClient *ocr.Client,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		collector: c,
		sessions:  sessions,
		ocr:       ocrClient,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/api/v1/corpus", s.handleCorpus)
	r.Post("/api/v1/uploads", s.handleUpload)
	r.Get("/api/v1/sessions/next", s.handleNextBatch)
	r.Post("/api/v1/answers", s.handleAnswer)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
