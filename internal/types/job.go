// Package types holds the domain data model shared by the pipelines and
// their collaborators: job postings, job records, structured CVs, and
// application receipts.
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-agent/internal/state"
)

// Source identifies where a job posting came from.
type Source string

const (
	SourceURL    Source = "url"
	SourceManual Source = "manual"
	SourceFeed   Source = "feed"
)

// Mode selects which terminal states a job can reach. MVP mode ends at
// "completed" once the document is rendered; full mode pauses at
// "pending_review" for a human decision.
type Mode string

const (
	ModeMVP  Mode = "mvp"
	ModeFull Mode = "full"
)

// Decision is a human review outcome for a pending_review record.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
	DecisionRetry   Decision = "retry"
)

// JobPosting is the canonical job description shape produced by the source
// adapter. It is immutable once extracted; retries regenerate the CV, never
// the posting.
type JobPosting struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location,omitempty"`
	Description  string `json:"description"`
	Requirements string `json:"requirements,omitempty"`
	URL          string `json:"url,omitempty"`
	Source       Source `json:"source"`
}

// RawInput is the pre-extraction payload handed to the source adapter.
// Exactly one of URL, Manual, or Feed is set depending on Source.
type RawInput struct {
	Source Source          `json:"source"`
	URL    string          `json:"url,omitempty"`
	Manual *ManualInput    `json:"manual,omitempty"`
	Feed   json.RawMessage `json:"feed,omitempty"`
}

// ManualInput is a pasted job description.
type ManualInput struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Description  string `json:"description"`
	Requirements string `json:"requirements,omitempty"`
	Location     string `json:"location,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Receipt records the outcome of an application attempt.
type Receipt struct {
	Method      string    `json:"method"`
	Reference   string    `json:"reference,omitempty"`
	Message     string    `json:"message,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// JobRecord is the unit of persisted pipeline state for one job-to-CV
// attempt. Status is mutated only by the pipelines, through the repository's
// compare-and-set update.
type JobRecord struct {
	ID           uuid.UUID     `json:"id"`
	Source       Source        `json:"source"`
	Mode         Mode          `json:"mode"`
	Status       state.Status  `json:"status"`
	RawInput     *RawInput     `json:"raw_input,omitempty"`
	JobPosting   *JobPosting   `json:"job_posting,omitempty"`
	ComposedCV   *StructuredCV `json:"composed_cv,omitempty"`
	DocumentPath string        `json:"document_path,omitempty"`
	Feedback     string        `json:"feedback,omitempty"`
	RetryCount   int           `json:"retry_count"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Receipt      *Receipt      `json:"receipt,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	AppliedAt    *time.Time    `json:"applied_at,omitempty"`
}

// Clone returns a deep-enough copy for handing records across goroutine
// boundaries: nested pointers are duplicated so callers cannot alias the
// repository's stored value.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.RawInput != nil {
		ri := *r.RawInput
		if r.RawInput.Manual != nil {
			m := *r.RawInput.Manual
			ri.Manual = &m
		}
		if r.RawInput.Feed != nil {
			ri.Feed = append(json.RawMessage(nil), r.RawInput.Feed...)
		}
		out.RawInput = &ri
	}
	if r.JobPosting != nil {
		p := *r.JobPosting
		out.JobPosting = &p
	}
	if r.ComposedCV != nil {
		out.ComposedCV = r.ComposedCV.Clone()
	}
	if r.Receipt != nil {
		rc := *r.Receipt
		out.Receipt = &rc
	}
	if r.AppliedAt != nil {
		t := *r.AppliedAt
		out.AppliedAt = &t
	}
	return &out
}
