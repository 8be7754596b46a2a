package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// Memory is an in-process Repository used for tests and database-less runs.
// A single mutex guards the map; patches are applied to a copy and swapped in
// whole, so readers never see a half-applied update.
type Memory struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.JobRecord
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[uuid.UUID]*types.JobRecord)}
}

// Create stores a new record. The id must be unique.
func (m *Memory) Create(_ context.Context, rec *types.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[rec.ID]; exists {
		return fmt.Errorf("job record already exists: %s", rec.ID)
	}
	m.jobs[rec.ID] = rec.Clone()
	return nil
}

// Get returns a copy of the record.
func (m *Memory) Get(_ context.Context, id uuid.UUID) (*types.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return rec.Clone(), nil
}

// Update applies the patch atomically and returns the updated record.
func (m *Memory) Update(_ context.Context, id uuid.UUID, patch Patch) (*types.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if patch.ExpectedStatus != nil && rec.Status != *patch.ExpectedStatus {
		return nil, &ConcurrentModificationError{ID: id, Expected: *patch.ExpectedStatus, Actual: rec.Status}
	}

	next := rec.Clone()
	applyPatch(next, patch)
	next.UpdatedAt = time.Now().UTC()
	m.jobs[id] = next

	return next.Clone(), nil
}

// ListByStatus returns copies of records in the given status, newest first.
func (m *Memory) ListByStatus(_ context.Context, status state.Status) ([]*types.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*types.JobRecord
	for _, rec := range m.jobs {
		if rec.Status == status {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory repository.
func (m *Memory) Close() {}

func applyPatch(rec *types.JobRecord, patch Patch) {
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.JobPosting != nil {
		p := *patch.JobPosting
		rec.JobPosting = &p
	}
	if patch.ComposedCV != nil {
		rec.ComposedCV = patch.ComposedCV.Clone()
	}
	if patch.DocumentPath != nil {
		rec.DocumentPath = *patch.DocumentPath
	}
	if patch.Feedback != nil {
		rec.Feedback = *patch.Feedback
	}
	if patch.RetryCount != nil {
		rec.RetryCount = *patch.RetryCount
	}
	if patch.ErrorMessage != nil {
		rec.ErrorMessage = *patch.ErrorMessage
	}
	if patch.Receipt != nil {
		r := *patch.Receipt
		rec.Receipt = &r
	}
	if patch.AppliedAt != nil {
		t := *patch.AppliedAt
		rec.AppliedAt = &t
	}
}
