package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-agent/internal/filter"
	"github.com/jonathan/job-agent/internal/repo"
	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// Collaborator fakes. Each one can be scripted to fail or stall.

type fakeSource struct {
	posting *types.JobPosting
	err     error
	calls   int
}

func (f *fakeSource) Extract(_ context.Context, _ types.RawInput) (*types.JobPosting, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.posting
	return &p, nil
}

type fakeFilter struct {
	verdict filter.Verdict
	err     error
	delay   time.Duration
}

func (f *fakeFilter) Evaluate(ctx context.Context, _ *types.JobPosting) (*filter.Verdict, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	v := f.verdict
	return &v, nil
}

type fakeComposer struct {
	cv        *types.StructuredCV
	err       error
	delay     time.Duration
	calls     int
	feedbacks []string
	priors    []*types.StructuredCV
}

func (f *fakeComposer) Compose(ctx context.Context, _ *types.StructuredCV, _ *types.JobPosting, prior *types.StructuredCV, feedback string) (*types.StructuredCV, error) {
	f.calls++
	f.feedbacks = append(f.feedbacks, feedback)
	f.priors = append(f.priors, prior)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.cv.Clone(), nil
}

type fakeRenderer struct {
	path  string
	err   error
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, _ *types.StructuredCV, _ *types.JobPosting) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeApplier struct {
	receipt *types.Receipt
	err     error
	calls   int
}

func (f *fakeApplier) Apply(_ context.Context, _ *types.JobPosting, _ string) (*types.Receipt, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.receipt
	return &r, nil
}

// harness bundles the pipelines with their fakes for one test.
type harness struct {
	repo     *repo.Memory
	source   *fakeSource
	filter   *fakeFilter
	composer *fakeComposer
	renderer *fakeRenderer
	applier  *fakeApplier
	p        *Pipelines
}

func newHarness(opts Options) *harness {
	h := &harness{
		repo:   repo.NewMemory(),
		source: &fakeSource{posting: &types.JobPosting{Title: "Engineer", Company: "Initech", Description: "Build things."}},
		filter: &fakeFilter{verdict: filter.Verdict{Suitable: true, Reason: "matches", Confidence: 0.9}},
		composer: &fakeComposer{cv: &types.StructuredCV{
			Contact: types.Contact{FullName: "Jane Doe", Email: "jane@example.com"},
			Summary: "tailored",
		}},
		renderer: &fakeRenderer{path: "/out/jane-doe_initech_engineer.tex"},
		applier:  &fakeApplier{receipt: &types.Receipt{Method: "manual", SubmittedAt: time.Now().UTC()}},
	}
	if opts.ExtractTimeout == 0 {
		opts.ExtractTimeout = time.Second
	}
	if opts.ComposeTimeout == 0 {
		opts.ComposeTimeout = time.Second
	}
	if opts.RenderTimeout == 0 {
		opts.RenderTimeout = time.Second
	}
	if opts.ApplyTimeout == 0 {
		opts.ApplyTimeout = time.Second
	}
	h.p = New(h.repo, h.source, h.filter, h.composer, h.renderer, h.applier, nil,
		&types.StructuredCV{}, opts, nil)
	return h
}

func (h *harness) submitAndRun(t *testing.T, mode types.Mode) *types.JobRecord {
	t.Helper()
	ctx := context.Background()
	rec, err := h.p.Submit(ctx, types.RawInput{Source: types.SourceManual, Manual: &types.ManualInput{}}, mode)
	require.NoError(t, err)
	rec, _ = h.p.Run(ctx, rec.ID)
	return h.mustGet(t, rec)
}

func (h *harness) mustGet(t *testing.T, rec *types.JobRecord) *types.JobRecord {
	t.Helper()
	got, err := h.repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	return got
}

func TestPreparationMVPCompletes(t *testing.T) {
	h := newHarness(Options{})
	rec := h.submitAndRun(t, types.ModeMVP)

	assert.Equal(t, state.StatusCompleted, rec.Status)
	require.NotNil(t, rec.JobPosting)
	assert.Equal(t, "Initech", rec.JobPosting.Company)
	require.NotNil(t, rec.ComposedCV)
	assert.Equal(t, "tailored", rec.ComposedCV.Summary)
	assert.Equal(t, "/out/jane-doe_initech_engineer.tex", rec.DocumentPath)
	assert.Empty(t, rec.ErrorMessage)
}

func TestPreparationFullParksAtReview(t *testing.T) {
	h := newHarness(Options{})
	rec := h.submitAndRun(t, types.ModeFull)

	assert.Equal(t, state.StatusPendingReview, rec.Status)
	assert.NotEmpty(t, rec.DocumentPath)
	assert.Zero(t, h.applier.calls, "applier must not run before approval")
}

func TestPreparationFiltersOut(t *testing.T) {
	h := newHarness(Options{})
	h.filter.verdict = filter.Verdict{Suitable: false, Reason: "on-site only", Confidence: 0.8}

	rec := h.submitAndRun(t, types.ModeFull)

	assert.Equal(t, state.StatusFilteredOut, rec.Status)
	assert.Equal(t, "on-site only", rec.Feedback)
	assert.Empty(t, rec.ErrorMessage, "filtered_out is not a failure")
	assert.Zero(t, h.composer.calls)
}

func TestPreparationExtractionFailure(t *testing.T) {
	h := newHarness(Options{})
	h.source.err = errors.New("page returned 410 Gone")

	rec := h.submitAndRun(t, types.ModeFull)

	assert.Equal(t, state.StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "410 Gone")
}

func TestPreparationComposeTimeout(t *testing.T) {
	h := newHarness(Options{ComposeTimeout: 30 * time.Millisecond})
	h.composer.delay = time.Second

	ctx := context.Background()
	rec, err := h.p.Submit(ctx, types.RawInput{Source: types.SourceManual, Manual: &types.ManualInput{}}, types.ModeFull)
	require.NoError(t, err)

	_, err = h.p.Run(ctx, rec.ID)
	var tErr *TimeoutError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "compose", tErr.Stage)

	got := h.mustGet(t, rec)
	assert.Equal(t, state.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "timed out")
}

func TestDecisionDecline(t *testing.T) {
	h := newHarness(Options{})
	rec := h.submitAndRun(t, types.ModeFull)
	require.Equal(t, state.StatusPendingReview, rec.Status)

	got, err := h.p.Decide(context.Background(), rec.ID, types.DecisionDecline, "not a fit")
	require.NoError(t, err)
	assert.Equal(t, state.StatusDeclined, got.Status)
	assert.Equal(t, "not a fit", got.Feedback)
	assert.Zero(t, h.applier.calls)
}

func TestDecisionApproveApplies(t *testing.T) {
	h := newHarness(Options{})
	rec := h.submitAndRun(t, types.ModeFull)

	got, err := h.p.Decide(context.Background(), rec.ID, types.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, state.StatusApplied, got.Status)
	require.NotNil(t, got.Receipt)
	assert.Equal(t, "manual", got.Receipt.Method)
	assert.NotNil(t, got.AppliedAt)
	assert.Equal(t, 1, h.applier.calls)
}

func TestDecisionApproveApplierFailure(t *testing.T) {
	h := newHarness(Options{})
	rec := h.submitAndRun(t, types.ModeFull)

	h.applier.err = errors.New("application form rejected the upload")
	_, err := h.p.Decide(context.Background(), rec.ID, types.DecisionApprove, "")
	require.Error(t, err)

	got := h.mustGet(t, rec)
	assert.Equal(t, state.StatusFailed, got.Status)
	assert.Equal(t, "application form rejected the upload", got.ErrorMessage,
		"applier error is preserved verbatim")
}

func TestDecisionRetryRecomposesWithFeedback(t *testing.T) {
	h := newHarness(Options{RetryCeiling: 3})
	rec := h.submitAndRun(t, types.ModeFull)

	got, err := h.p.Decide(context.Background(), rec.ID, types.DecisionRetry, "emphasize the Go work")
	require.NoError(t, err)

	assert.Equal(t, state.StatusPendingReview, got.Status, "a retry ends back at review")
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, 2, h.composer.calls)
	assert.Equal(t, "emphasize the Go work", h.composer.feedbacks[1])
	assert.Equal(t, 1, h.source.calls, "retries never re-extract the posting")

	// The first round composes from scratch; the retry revises the prior CV.
	assert.Nil(t, h.composer.priors[0])
	require.NotNil(t, h.composer.priors[1])
	assert.Equal(t, "tailored", h.composer.priors[1].Summary)
}

func TestDecisionRetryCeilingFailsRecord(t *testing.T) {
	h := newHarness(Options{RetryCeiling: 2})
	rec := h.submitAndRun(t, types.ModeFull)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := h.p.Retry(ctx, rec.ID, "again")
		require.NoError(t, err)
	}
	composeCalls := h.composer.calls

	_, err := h.p.Retry(ctx, rec.ID, "one more")
	var ceiling *RetryCeilingError
	require.ErrorAs(t, err, &ceiling)
	assert.Equal(t, 2, ceiling.Ceiling)

	// The exhausted record fails terminally and the composer never ran.
	got := h.mustGet(t, rec)
	assert.Equal(t, state.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "retry ceiling")
	assert.Equal(t, composeCalls, h.composer.calls, "the ceiling attempt must not invoke the composer")

	// No decision applies to a failed record.
	_, err = h.p.Decide(ctx, rec.ID, types.DecisionDecline, "")
	var invalid *state.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestPreparationFilterTimeout(t *testing.T) {
	h := newHarness(Options{ExtractTimeout: 30 * time.Millisecond})
	h.filter.delay = time.Second

	ctx := context.Background()
	rec, err := h.p.Submit(ctx, types.RawInput{Source: types.SourceManual, Manual: &types.ManualInput{}}, types.ModeFull)
	require.NoError(t, err)

	_, err = h.p.Run(ctx, rec.ID)
	var tErr *TimeoutError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "filter", tErr.Stage)

	got := h.mustGet(t, rec)
	assert.Equal(t, state.StatusFailed, got.Status, "a hung filter must not strand the record in extracting")
	assert.Contains(t, got.ErrorMessage, "timed out")
}

func TestDecisionOnNonReviewableRecord(t *testing.T) {
	h := newHarness(Options{})
	rec := h.submitAndRun(t, types.ModeMVP)
	require.Equal(t, state.StatusCompleted, rec.Status)

	_, err := h.p.Decide(context.Background(), rec.ID, types.DecisionApprove, "")
	var invalid *state.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	_, err = h.p.Retry(context.Background(), rec.ID, "fb")
	require.ErrorAs(t, err, &invalid)
}

func TestRunResumesFromClaimedStatus(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()

	rec, err := h.p.Submit(ctx, types.RawInput{Source: types.SourceManual, Manual: &types.ManualInput{}}, types.ModeFull)
	require.NoError(t, err)

	// Another invocation claimed the record first.
	_, err = h.repo.Update(ctx, rec.ID, repo.Patch{
		ExpectedStatus: repo.StatusPtr(state.StatusQueued),
		Status:         repo.StatusPtr(state.StatusExtracting),
	})
	require.NoError(t, err)

	// This Run resumes from extracting instead of double-claiming queued.
	got, err := h.p.Run(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusPendingReview, got.Status)
	assert.Equal(t, 1, h.source.calls)
}

func TestRunOnTerminalRecordIsNoOp(t *testing.T) {
	h := newHarness(Options{})
	rec := h.submitAndRun(t, types.ModeMVP)

	before := h.composer.calls
	got, err := h.p.Run(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, got.Status)
	assert.Equal(t, before, h.composer.calls)
}

func TestResumeInFlight(t *testing.T) {
	h := newHarness(Options{ResumeParallel: 2})
	ctx := context.Background()

	// Strand records the way a crash would: mid-stage statuses with the data
	// their stage needs already persisted.
	stranded, err := h.p.Submit(ctx, types.RawInput{Source: types.SourceManual, Manual: &types.ManualInput{}}, types.ModeFull)
	require.NoError(t, err)

	composing, err := h.p.Submit(ctx, types.RawInput{Source: types.SourceManual, Manual: &types.ManualInput{}}, types.ModeMVP)
	require.NoError(t, err)
	_, err = h.repo.Update(ctx, composing.ID, repo.Patch{
		Status:     repo.StatusPtr(state.StatusComposingCV),
		JobPosting: h.source.posting,
	})
	require.NoError(t, err)

	parked := h.submitAndRun(t, types.ModeFull)
	require.Equal(t, state.StatusPendingReview, parked.Status)

	require.NoError(t, h.p.ResumeInFlight(ctx))

	assert.Equal(t, state.StatusPendingReview, h.mustGet(t, stranded).Status)
	assert.Equal(t, state.StatusCompleted, h.mustGet(t, composing).Status)
	assert.Equal(t, state.StatusPendingReview, h.mustGet(t, parked).Status,
		"records waiting on a human are untouched")
}
