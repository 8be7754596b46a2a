package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/job-agent/internal/compose"
	"github.com/jonathan/job-agent/internal/filter"
	"github.com/jonathan/job-agent/internal/pipeline"
	"github.com/jonathan/job-agent/internal/repo"
	"github.com/jonathan/job-agent/internal/source"
	"github.com/jonathan/job-agent/internal/state"
)

// errorResponse is the JSON error body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HTTPStatus maps domain errors to response codes. Anything unrecognized is
// an internal error.
func HTTPStatus(err error) int {
	var (
		notFound   *repo.NotFoundError
		concurrent *repo.ConcurrentModificationError
		invalid    *state.InvalidTransitionError
		ceiling    *pipeline.RetryCeilingError
		extraction *source.ExtractionError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &concurrent), errors.As(err, &invalid), errors.As(err, &ceiling):
		return http.StatusConflict
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorCode gives clients a stable machine-readable discriminator.
func errorCode(err error) string {
	var (
		notFound   *repo.NotFoundError
		concurrent *repo.ConcurrentModificationError
		invalid    *state.InvalidTransitionError
		ceiling    *pipeline.RetryCeilingError
		timeout    *pipeline.TimeoutError
		extraction *source.ExtractionError
		filterErr  *filter.Error
		composeErr *compose.Error
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &concurrent):
		return "concurrent_modification"
	case errors.As(err, &invalid):
		return "invalid_state_transition"
	case errors.As(err, &ceiling):
		return "retry_ceiling_exceeded"
	case errors.As(err, &timeout):
		return "collaborator_timeout"
	case errors.As(err, &extraction):
		return "extraction_error"
	case errors.As(err, &filterErr):
		return "filter_error"
	case errors.As(err, &composeErr):
		return "compose_error"
	default:
		return "internal_error"
	}
}
