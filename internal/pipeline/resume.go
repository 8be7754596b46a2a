package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// Resume re-drives a single record from its persisted status. It is Run
// under a name that states the intent at crash-recovery call sites.
func (p *Pipelines) Resume(ctx context.Context, id uuid.UUID) (*types.JobRecord, error) {
	return p.Run(ctx, id)
}

// ResumeInFlight re-drives every record stranded in a non-resting status by
// an earlier crash. Jobs run with bounded parallelism; individual job
// failures are recorded on the job and do not stop the sweep.
func (p *Pipelines) ResumeInFlight(ctx context.Context) error {
	var pending []*types.JobRecord
	for _, status := range state.InFlight() {
		recs, err := p.repo.ListByStatus(ctx, status)
		if err != nil {
			return err
		}
		pending = append(pending, recs...)
	}
	if len(pending) == 0 {
		return nil
	}

	p.logger.Info("resuming in-flight jobs", zap.Int("count", len(pending)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.ResumeParallel)
	for _, rec := range pending {
		g.Go(func() error {
			if _, err := p.Resume(gctx, rec.ID); err != nil {
				// Run already failed the record; the sweep keeps going.
				p.logger.Warn("resume did not complete",
					zap.String("job_id", rec.ID.String()),
					zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}
