// Package server exposes the job pipelines over HTTP: submission, status,
// the review queue, and review decisions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/pipeline"
	"github.com/jonathan/job-agent/internal/repo"
)

// Server is the HTTP front end over the pipelines.
type Server struct {
	pipelines *pipeline.Pipelines
	repo      repo.Repository
	validate  *validator.Validate
	logger    *zap.Logger
	httpSrv   *http.Server
}

// New builds the server and its routes.
func New(pipelines *pipeline.Pipelines, repository repo.Repository, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipelines: pipelines,
		repo:      repository,
		validate:  validator.New(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/jobs", s.handleSubmit)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/review/pending", s.handlePendingReview)
	mux.HandleFunc("POST /api/jobs/{id}/decision", s.handleDecision)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.withLogging(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the context is canceled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return s.httpSrv.Shutdown(shutdownCtx)
}

// withLogging logs each request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
