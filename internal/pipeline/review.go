package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/repo"
	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// Decide applies a human review decision to a pending_review record and
// drives any follow-up work: approve submits the application, retry
// recomposes with the reviewer's feedback, decline parks the record
// terminally. Decisions against records in any other status fail with
// InvalidTransitionError.
func (p *Pipelines) Decide(ctx context.Context, id uuid.UUID, decision types.Decision, feedback string) (*types.JobRecord, error) {
	switch decision {
	case types.DecisionApprove:
		return p.approve(ctx, id)
	case types.DecisionDecline:
		return p.decline(ctx, id, feedback)
	case types.DecisionRetry:
		return p.Retry(ctx, id, feedback)
	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}
}

func (p *Pipelines) approve(ctx context.Context, id uuid.UUID) (*types.JobRecord, error) {
	rec, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err = p.advance(ctx, rec, state.TriggerApprove, repo.Patch{})
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, id)
}

func (p *Pipelines) decline(ctx context.Context, id uuid.UUID, feedback string) (*types.JobRecord, error) {
	rec, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch := repo.Patch{}
	if feedback != "" {
		patch.Feedback = repo.StringPtr(feedback)
	}
	return p.advance(ctx, rec, state.TriggerDecline, patch)
}

// Retry sends a pending_review record back through composition with the
// reviewer's feedback. The retry budget is checked before composition: a
// request past the ceiling fails the record terminally without invoking the
// composer, and the caller gets RetryCeilingError.
func (p *Pipelines) Retry(ctx context.Context, id uuid.UUID, feedback string) (*types.JobRecord, error) {
	rec, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != state.StatusPendingReview {
		return nil, &state.InvalidTransitionError{From: rec.Status, Trigger: state.TriggerRetry}
	}
	if rec.RetryCount >= p.opts.RetryCeiling {
		ceilingErr := &RetryCeilingError{ID: id, Ceiling: p.opts.RetryCeiling}
		p.fail(ctx, rec, ceilingErr)
		return nil, ceilingErr
	}

	rec, err = p.advance(ctx, rec, state.TriggerRetry, repo.Patch{
		Feedback:   repo.StringPtr(feedback),
		RetryCount: repo.IntPtr(rec.RetryCount + 1),
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("retry accepted",
		zap.String("job_id", id.String()),
		zap.Int("retry_count", rec.RetryCount))
	return p.Run(ctx, id)
}
