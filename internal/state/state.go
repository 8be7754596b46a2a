// Package state defines the job lifecycle state machine: the status enum,
// the triggers that move a record between statuses, and the single transition
// authority Next. Every pipeline mutation goes through Next; illegal paths are
// rejected here rather than relying on callers to route correctly.
package state

import "fmt"

// Status is the persisted lifecycle status of a job record.
type Status string

const (
	StatusQueued        Status = "queued"
	StatusExtracting    Status = "extracting"
	StatusFilteredOut   Status = "filtered_out"
	StatusSuitable      Status = "suitable"
	StatusComposingCV   Status = "composing_cv"
	StatusGeneratingPDF Status = "generating_pdf"
	StatusCompleted     Status = "completed"
	StatusPendingReview Status = "pending_review"
	StatusRetrying      Status = "retrying"
	StatusApplying      Status = "applying"
	StatusApplied       Status = "applied"
	StatusDeclined      Status = "declined"
	StatusFailed        Status = "failed"
)

// Trigger names an event that advances a record through the state machine.
type Trigger string

const (
	TriggerExtract     Trigger = "extract"      // queued -> extracting
	TriggerExtracted   Trigger = "extracted"    // extracting -> suitable
	TriggerFilteredOut Trigger = "filtered_out" // extracting -> filtered_out
	TriggerCompose     Trigger = "compose"      // suitable -> composing_cv
	TriggerComposed    Trigger = "composed"     // composing_cv -> generating_pdf
	TriggerComplete    Trigger = "complete"     // generating_pdf -> completed (mvp)
	TriggerAwaitReview Trigger = "await_review" // generating_pdf -> pending_review (full)
	TriggerApprove     Trigger = "approve"      // pending_review -> applying
	TriggerDecline     Trigger = "decline"      // pending_review -> declined
	TriggerRetry       Trigger = "retry"        // pending_review -> retrying
	TriggerRecompose   Trigger = "recompose"    // retrying -> composing_cv
	TriggerApplied     Trigger = "applied"      // applying -> applied
	TriggerFail        Trigger = "fail"         // any non-terminal -> failed
)

// transitions is the authoritative edge table. TriggerFail is handled
// separately in Next because it is legal from every non-terminal status.
var transitions = map[Status]map[Trigger]Status{
	StatusQueued: {
		TriggerExtract: StatusExtracting,
	},
	StatusExtracting: {
		TriggerExtracted:   StatusSuitable,
		TriggerFilteredOut: StatusFilteredOut,
	},
	StatusSuitable: {
		TriggerCompose: StatusComposingCV,
	},
	StatusComposingCV: {
		TriggerComposed: StatusGeneratingPDF,
	},
	StatusGeneratingPDF: {
		TriggerComplete:    StatusCompleted,
		TriggerAwaitReview: StatusPendingReview,
	},
	StatusPendingReview: {
		TriggerApprove: StatusApplying,
		TriggerDecline: StatusDeclined,
		TriggerRetry:   StatusRetrying,
	},
	StatusRetrying: {
		TriggerRecompose: StatusComposingCV,
	},
	StatusApplying: {
		TriggerApplied: StatusApplied,
	},
}

// terminal statuses accept no further automatic transitions.
var terminal = map[Status]bool{
	StatusFilteredOut: true,
	StatusCompleted:   true,
	StatusApplied:     true,
	StatusDeclined:    true,
	StatusFailed:      true,
}

// InvalidTransitionError reports a trigger that is not legal from the
// record's current status. The record is left untouched by the caller.
type InvalidTransitionError struct {
	From    Status
	Trigger Trigger
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: trigger %q is not allowed from status %q", e.Trigger, e.From)
}

// Next returns the status reached by applying trigger from the given status.
// TriggerFail is accepted from every non-terminal status.
func Next(from Status, trigger Trigger) (Status, error) {
	if trigger == TriggerFail {
		if terminal[from] {
			return "", &InvalidTransitionError{From: from, Trigger: trigger}
		}
		return StatusFailed, nil
	}
	edges, ok := transitions[from]
	if !ok {
		return "", &InvalidTransitionError{From: from, Trigger: trigger}
	}
	next, ok := edges[trigger]
	if !ok {
		return "", &InvalidTransitionError{From: from, Trigger: trigger}
	}
	return next, nil
}

// IsTerminal reports whether a status accepts no further transitions.
func IsTerminal(s Status) bool {
	return terminal[s]
}

// IsValid reports whether s is a known status value.
func IsValid(s Status) bool {
	switch s {
	case StatusQueued, StatusExtracting, StatusFilteredOut, StatusSuitable,
		StatusComposingCV, StatusGeneratingPDF, StatusCompleted,
		StatusPendingReview, StatusRetrying, StatusApplying, StatusApplied,
		StatusDeclined, StatusFailed:
		return true
	}
	return false
}

// InFlight lists the statuses a crashed pipeline invocation can leave a
// record in. Resuming means re-running the stage matching the status.
func InFlight() []Status {
	return []Status{
		StatusQueued,
		StatusExtracting,
		StatusSuitable,
		StatusComposingCV,
		StatusGeneratingPDF,
		StatusRetrying,
		StatusApplying,
	}
}
