package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/filter"
	"github.com/jonathan/job-agent/internal/repo"
	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// Submit creates a queued job record for the given raw input. The record is
// persisted before any processing starts, so a crash between submission and
// the first stage leaves a resumable queued record rather than losing the
// job.
func (p *Pipelines) Submit(ctx context.Context, raw types.RawInput, mode types.Mode) (*types.JobRecord, error) {
	now := time.Now().UTC()
	rec := &types.JobRecord{
		ID:        uuid.New(),
		Source:    raw.Source,
		Mode:      mode,
		Status:    state.StatusQueued,
		RawInput:  &raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	p.logger.Info("job submitted",
		zap.String("job_id", rec.ID.String()),
		zap.String("source", string(raw.Source)),
		zap.String("mode", string(mode)))
	return rec, nil
}

// Run drives a record forward from its current status until it reaches a
// resting point: a terminal status or pending_review. Each working stage is
// entered through a compare-and-set claim, so concurrent Run calls for the
// same record cannot both execute a stage.
//
// Run is also the resume path: a record stranded mid-stage by a crash
// re-enters at the status it was left in.
func (p *Pipelines) Run(ctx context.Context, id uuid.UUID) (*types.JobRecord, error) {
	rec, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return rec, err
		}

		switch rec.Status {
		case state.StatusQueued:
			rec, err = p.advance(ctx, rec, state.TriggerExtract, repo.Patch{})
		case state.StatusExtracting:
			rec, err = p.stageExtract(ctx, rec)
		case state.StatusSuitable:
			rec, err = p.advance(ctx, rec, state.TriggerCompose, repo.Patch{})
		case state.StatusComposingCV:
			rec, err = p.stageCompose(ctx, rec)
		case state.StatusGeneratingPDF:
			rec, err = p.stageRender(ctx, rec)
		case state.StatusRetrying:
			rec, err = p.advance(ctx, rec, state.TriggerRecompose, repo.Patch{})
		case state.StatusApplying:
			rec, err = p.stageApply(ctx, rec)
		default:
			// Terminal or pending_review: nothing left to drive.
			return rec, nil
		}
		if err != nil {
			return rec, err
		}
	}
}

// stageExtract turns the raw input into a job posting and runs the
// suitability filter. Unsuitable postings end at filtered_out with the
// verdict reason; extraction and filter failures end at failed.
func (p *Pipelines) stageExtract(ctx context.Context, rec *types.JobRecord) (*types.JobRecord, error) {
	if rec.RawInput == nil {
		err := &state.InvalidTransitionError{From: rec.Status, Trigger: state.TriggerExtracted}
		p.fail(ctx, rec, err)
		return rec, err
	}

	var posting *types.JobPosting
	err := p.withTimeout(ctx, "extract", p.opts.ExtractTimeout, func(tctx context.Context) error {
		var exErr error
		posting, exErr = p.source.Extract(tctx, *rec.RawInput)
		return exErr
	})
	if err != nil {
		p.fail(ctx, rec, err)
		return rec, err
	}

	var verdict *filter.Verdict
	err = p.withTimeout(ctx, "filter", p.opts.ExtractTimeout, func(tctx context.Context) error {
		var fErr error
		verdict, fErr = p.filter.Evaluate(tctx, posting)
		return fErr
	})
	if err != nil {
		p.fail(ctx, rec, err)
		return rec, err
	}
	if !verdict.Suitable {
		return p.advance(ctx, rec, state.TriggerFilteredOut, repo.Patch{
			JobPosting: posting,
			Feedback:   repo.StringPtr(verdict.Reason),
		})
	}

	return p.advance(ctx, rec, state.TriggerExtracted, repo.Patch{
		JobPosting: posting,
	})
}

// stageCompose tailors the master CV to the posting, feeding back reviewer
// comments on retry rounds.
func (p *Pipelines) stageCompose(ctx context.Context, rec *types.JobRecord) (*types.JobRecord, error) {
	if rec.JobPosting == nil {
		err := &state.InvalidTransitionError{From: rec.Status, Trigger: state.TriggerComposed}
		p.fail(ctx, rec, err)
		return rec, err
	}

	var cv *types.StructuredCV
	err := p.withTimeout(ctx, "compose", p.opts.ComposeTimeout, func(tctx context.Context) error {
		var cErr error
		cv, cErr = p.composer.Compose(tctx, p.masterCV, rec.JobPosting, rec.ComposedCV, rec.Feedback)
		return cErr
	})
	if err != nil {
		p.fail(ctx, rec, err)
		return rec, err
	}

	return p.advance(ctx, rec, state.TriggerComposed, repo.Patch{
		ComposedCV: cv,
	})
}

// stageRender writes the application document. MVP jobs finish here; full
// jobs park at pending_review for a human decision.
func (p *Pipelines) stageRender(ctx context.Context, rec *types.JobRecord) (*types.JobRecord, error) {
	if rec.ComposedCV == nil || rec.JobPosting == nil {
		err := &state.InvalidTransitionError{From: rec.Status, Trigger: state.TriggerComplete}
		p.fail(ctx, rec, err)
		return rec, err
	}

	var path string
	err := p.withTimeout(ctx, "render", p.opts.RenderTimeout, func(tctx context.Context) error {
		var rErr error
		path, rErr = p.renderer.Render(tctx, rec.ComposedCV, rec.JobPosting)
		return rErr
	})
	if err != nil {
		p.fail(ctx, rec, err)
		return rec, err
	}

	trigger := state.TriggerComplete
	if rec.Mode == types.ModeFull {
		trigger = state.TriggerAwaitReview
	}
	return p.advance(ctx, rec, trigger, repo.Patch{
		DocumentPath: repo.StringPtr(path),
	})
}

// stageApply submits the application through the configured applier.
func (p *Pipelines) stageApply(ctx context.Context, rec *types.JobRecord) (*types.JobRecord, error) {
	if rec.JobPosting == nil || rec.DocumentPath == "" {
		err := &state.InvalidTransitionError{From: rec.Status, Trigger: state.TriggerApplied}
		p.fail(ctx, rec, err)
		return rec, err
	}

	var receipt *types.Receipt
	err := p.withTimeout(ctx, "apply", p.opts.ApplyTimeout, func(tctx context.Context) error {
		var aErr error
		receipt, aErr = p.applier.Apply(tctx, rec.JobPosting, rec.DocumentPath)
		return aErr
	})
	if err != nil {
		p.fail(ctx, rec, err)
		return rec, err
	}

	now := time.Now().UTC()
	return p.advance(ctx, rec, state.TriggerApplied, repo.Patch{
		Receipt:   receipt,
		AppliedAt: &now,
	})
}
