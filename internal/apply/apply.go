// Package apply submits a finished application to the employer.
package apply

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/types"
)

// Error reports a submission failure. The message is preserved verbatim on
// the job record so the operator sees exactly what the applier saw.
type Error struct {
	Method  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("apply error (%s): %s: %v", e.Method, e.Message, e.Cause)
	}
	return fmt.Sprintf("apply error (%s): %s", e.Method, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Applier submits an application and returns a receipt describing how and
// where it was submitted.
type Applier interface {
	Apply(ctx context.Context, posting *types.JobPosting, documentPath string) (*types.Receipt, error)
}

// Manual records that the operator will submit the application themselves.
// It is the default applier: the document is ready, the receipt points at it,
// and no network submission happens.
type Manual struct {
	logger *zap.Logger
}

func NewManual(logger *zap.Logger) *Manual {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manual{logger: logger}
}

func (m *Manual) Apply(_ context.Context, posting *types.JobPosting, documentPath string) (*types.Receipt, error) {
	m.logger.Info("manual application recorded",
		zap.String("company", posting.Company),
		zap.String("title", posting.Title),
		zap.String("document", documentPath))
	return &types.Receipt{
		Method:      "manual",
		Reference:   documentPath,
		Message:     fmt.Sprintf("document ready for manual submission to %s", posting.Company),
		SubmittedAt: time.Now().UTC(),
	}, nil
}
