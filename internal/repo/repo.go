// Package repo provides persistence for job records. The repository is the
// single source of truth for a record's status; pipelines advance records
// only through Update's compare-and-set semantics, so two concurrent
// invocations for the same record cannot both win.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// NotFoundError indicates no record exists for the requested id.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job record not found: %s", e.ID)
}

// ConcurrentModificationError indicates an update lost the atomic claim race:
// the record's status no longer matched the expected prior status.
type ConcurrentModificationError struct {
	ID       uuid.UUID
	Expected state.Status
	Actual   state.Status
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of job %s: expected status %q, found %q",
		e.ID, e.Expected, e.Actual)
}

// Patch describes a partial update to a job record. Nil pointer fields are
// left untouched. ExpectedStatus, when set, makes the update a compare-and-set
// on status; a mismatch fails with ConcurrentModificationError and writes
// nothing.
type Patch struct {
	ExpectedStatus *state.Status

	Status       *state.Status
	JobPosting   *types.JobPosting
	ComposedCV   *types.StructuredCV
	DocumentPath *string
	Feedback     *string
	RetryCount   *int
	ErrorMessage *string
	Receipt      *types.Receipt
	AppliedAt    *time.Time
}

// Repository is the persistence capability consumed by the pipelines.
// Implementations must apply Update atomically per record: concurrent readers
// never observe a partially applied patch.
type Repository interface {
	Create(ctx context.Context, rec *types.JobRecord) error
	Get(ctx context.Context, id uuid.UUID) (*types.JobRecord, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*types.JobRecord, error)
	ListByStatus(ctx context.Context, status state.Status) ([]*types.JobRecord, error)
	Close()
}

// helper pointers for building patches at call sites.

// StatusPtr returns a pointer to s.
func StatusPtr(s state.Status) *state.Status { return &s }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
