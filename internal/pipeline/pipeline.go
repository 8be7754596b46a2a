// Package pipeline orchestrates the job lifecycle: preparation from raw
// input to a rendered document, human review decisions, retries with
// feedback, and application submission. All status changes go through the
// state machine and the repository's compare-and-set update, so concurrent
// invocations for the same record resolve to exactly one winner.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/apply"
	"github.com/jonathan/job-agent/internal/compose"
	"github.com/jonathan/job-agent/internal/filter"
	"github.com/jonathan/job-agent/internal/notify"
	"github.com/jonathan/job-agent/internal/render"
	"github.com/jonathan/job-agent/internal/repo"
	"github.com/jonathan/job-agent/internal/source"
	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// TimeoutError indicates a collaborator exceeded its stage deadline. The
// affected record is failed, not left in flight.
type TimeoutError struct {
	Stage   string
	Timeout time.Duration
	Cause   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out after %s", e.Stage, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// RetryCeilingError reports a retry request for a record that has exhausted
// its retry budget. The record is failed terminally; the composer is never
// invoked for the attempt.
type RetryCeilingError struct {
	ID      uuid.UUID
	Ceiling int
}

func (e *RetryCeilingError) Error() string {
	return fmt.Sprintf("job %s has reached the retry ceiling of %d", e.ID, e.Ceiling)
}

// Options holds pipeline tuning knobs.
type Options struct {
	// RetryCeiling is the maximum number of reviewer-requested retries per job.
	RetryCeiling int
	// ResumeParallel bounds concurrent jobs during startup resume.
	ResumeParallel int

	ExtractTimeout time.Duration
	ComposeTimeout time.Duration
	RenderTimeout  time.Duration
	ApplyTimeout   time.Duration
}

// Pipelines wires the repository and the stage collaborators into the three
// public flows: preparation, review decisions, and startup resume.
type Pipelines struct {
	repo     repo.Repository
	source   source.Adapter
	filter   filter.Filter
	composer compose.Composer
	renderer render.Renderer
	applier  apply.Applier
	notifier notify.Notifier
	masterCV *types.StructuredCV
	opts     Options
	logger   *zap.Logger
}

// New builds the pipelines. masterCV must already be loaded and validated.
func New(
	repository repo.Repository,
	src source.Adapter,
	flt filter.Filter,
	composer compose.Composer,
	renderer render.Renderer,
	applier apply.Applier,
	notifier notify.Notifier,
	masterCV *types.StructuredCV,
	opts Options,
	logger *zap.Logger,
) *Pipelines {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryCeiling <= 0 {
		opts.RetryCeiling = 3
	}
	if opts.ResumeParallel <= 0 {
		opts.ResumeParallel = 4
	}
	return &Pipelines{
		repo:     repository,
		source:   src,
		filter:   flt,
		composer: composer,
		renderer: renderer,
		applier:  applier,
		notifier: notifier,
		masterCV: masterCV,
		opts:     opts,
		logger:   logger,
	}
}

// advance applies one state machine transition with a compare-and-set on the
// record's current status, persisting the patch in the same write. Losing the
// claim race surfaces as repo.ConcurrentModificationError and writes nothing.
func (p *Pipelines) advance(ctx context.Context, rec *types.JobRecord, trigger state.Trigger, patch repo.Patch) (*types.JobRecord, error) {
	next, err := state.Next(rec.Status, trigger)
	if err != nil {
		return nil, err
	}
	patch.ExpectedStatus = repo.StatusPtr(rec.Status)
	patch.Status = repo.StatusPtr(next)

	updated, err := p.repo.Update(ctx, rec.ID, patch)
	if err != nil {
		return nil, err
	}

	p.logger.Info("job status changed",
		zap.String("job_id", rec.ID.String()),
		zap.String("from", string(rec.Status)),
		zap.String("to", string(next)),
		zap.String("trigger", string(trigger)))

	// Only resting points are worth a notification; intermediate working
	// statuses would flood the webhook.
	if next == state.StatusPendingReview || state.IsTerminal(next) {
		p.notifier.StatusChanged(ctx, notify.Event{
			JobID:        updated.ID,
			Status:       updated.Status,
			ErrorMessage: updated.ErrorMessage,
		})
	}
	return updated, nil
}

// fail moves a record to failed, recording the cause verbatim. Records that
// reached a terminal status in the meantime are left alone.
func (p *Pipelines) fail(ctx context.Context, rec *types.JobRecord, cause error) {
	_, err := p.advance(ctx, rec, state.TriggerFail, repo.Patch{
		ErrorMessage: repo.StringPtr(cause.Error()),
	})
	if err != nil {
		p.logger.Warn("could not mark job failed",
			zap.String("job_id", rec.ID.String()),
			zap.Error(err))
	}
}

// withTimeout runs one collaborator call under a stage deadline. A deadline
// hit comes back as TimeoutError so the caller records a precise cause.
func (p *Pipelines) withTimeout(ctx context.Context, stage string, d time.Duration, fn func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(tctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Stage: stage, Timeout: d, Cause: err}
	}
	return err
}
