package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// submitRequest is the POST /api/jobs body. Exactly one of url, manual, or
// feed must match the declared source.
type submitRequest struct {
	Source types.Source       `json:"source" validate:"required,oneof=url manual feed"`
	Mode   types.Mode         `json:"mode" validate:"omitempty,oneof=mvp full"`
	URL    string             `json:"url,omitempty" validate:"required_if=Source url,omitempty,url"`
	Manual *types.ManualInput `json:"manual,omitempty" validate:"required_if=Source manual"`
	Feed   json.RawMessage    `json:"feed,omitempty" validate:"required_if=Source feed"`
}

// decisionRequest is the POST /api/jobs/{id}/decision body.
type decisionRequest struct {
	Decision types.Decision `json:"decision" validate:"required,oneof=approve decline retry"`
	Feedback string         `json:"feedback,omitempty" validate:"required_if=Decision retry"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmit accepts a job, persists it queued, and starts preparation in
// the background. The response is 202 with the queued record; clients poll
// GET /api/jobs/{id} for progress.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "validation_failed")
		return
	}
	if req.Mode == "" {
		req.Mode = types.ModeFull
	}

	raw := types.RawInput{
		Source: req.Source,
		URL:    req.URL,
		Manual: req.Manual,
		Feed:   req.Feed,
	}
	rec, err := s.pipelines.Submit(r.Context(), raw, req.Mode)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	go func() {
		// Detached from the request: submission already succeeded.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := s.pipelines.Run(ctx, rec.ID); err != nil {
			s.logger.Warn("background preparation ended with error",
				zap.String("job_id", rec.ID.String()),
				zap.Error(err))
		}
	}()

	s.writeJSON(w, http.StatusAccepted, rec)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.repo.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePendingReview(w http.ResponseWriter, r *http.Request) {
	recs, err := s.repo.ListByStatus(r.Context(), state.StatusPendingReview)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  recs,
		"count": len(recs),
	})
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "validation_failed")
		return
	}

	rec, err := s.pipelines.Decide(r.Context(), id, req.Decision, req.Feedback)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id", "bad_request")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, code string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeError(w, status, err.Error(), errorCode(err))
}
