// Package compose tailors the master CV to a specific job posting with an
// LLM, then validates the result against the CV schema and a fabrication
// guard before it is allowed downstream.
package compose

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/llm"
	"github.com/jonathan/job-agent/internal/types"
)

// maxRepairAttempts bounds re-prompts after schema or fabrication failures.
const maxRepairAttempts = 2

// Error reports a composition failure after repair attempts are exhausted.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compose error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("compose error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Composer produces a CV tailored to a posting. On retry rounds the prior
// tailored CV and the reviewer's feedback travel together so the model
// revises the rejected version instead of starting over.
type Composer interface {
	Compose(ctx context.Context, master *types.StructuredCV, posting *types.JobPosting, prior *types.StructuredCV, feedback string) (*types.StructuredCV, error)
}

// LLMComposer is the production Composer.
type LLMComposer struct {
	client llm.Client
	logger *zap.Logger
}

func NewLLMComposer(client llm.Client, logger *zap.Logger) *LLMComposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMComposer{client: client, logger: logger}
}

// Compose generates a tailored CV. Outputs failing schema validation or the
// fabrication guard are re-prompted with the rejection reason up to
// maxRepairAttempts times before giving up.
func (c *LLMComposer) Compose(ctx context.Context, master *types.StructuredCV, posting *types.JobPosting, prior *types.StructuredCV, feedback string) (*types.StructuredCV, error) {
	masterJSON, err := json.MarshalIndent(master, "", "  ")
	if err != nil {
		return nil, &Error{Message: "failed to encode master CV", Cause: err}
	}

	var priorJSON string
	if prior != nil {
		raw, err := json.MarshalIndent(prior, "", "  ")
		if err != nil {
			return nil, &Error{Message: "failed to encode prior CV", Cause: err}
		}
		priorJSON = string(raw)
	}

	basePrompt := buildComposePrompt(string(masterJSON), posting, priorJSON, feedback)
	prompt := basePrompt

	var lastProblem string
	for attempt := 0; attempt <= maxRepairAttempts; attempt++ {
		out, err := c.client.GenerateJSON(ctx, prompt)
		if err != nil {
			return nil, &Error{Message: "llm generation failed", Cause: err}
		}
		out = llm.CleanJSONBlock(out)

		cv, problem := c.checkOutput(master, out)
		if problem == "" {
			if attempt > 0 {
				c.logger.Info("composition repaired", zap.Int("attempts", attempt+1))
			}
			return cv, nil
		}

		lastProblem = problem
		c.logger.Warn("composed CV rejected",
			zap.Int("attempt", attempt+1),
			zap.String("problem", problem))
		prompt = buildRepairPrompt(basePrompt, out, problem)
	}

	return nil, &Error{Message: fmt.Sprintf("rejected after %d attempts: %s", maxRepairAttempts+1, lastProblem)}
}

// checkOutput parses and vets one model output. The returned problem string
// is empty on success and suitable for a repair prompt otherwise.
func (c *LLMComposer) checkOutput(master *types.StructuredCV, out string) (*types.StructuredCV, string) {
	violations, err := ValidateCV(out)
	if err != nil {
		return nil, fmt.Sprintf("output is not valid JSON: %v", err)
	}
	if len(violations) > 0 {
		return nil, "schema violations: " + formatViolations(violations)
	}

	var cv types.StructuredCV
	if err := json.Unmarshal([]byte(out), &cv); err != nil {
		return nil, fmt.Sprintf("output does not parse as a CV: %v", err)
	}

	if fabricated := CheckFabrication(master, &cv); len(fabricated) > 0 {
		return nil, "fabricated entities not present in the master CV: " + formatViolations(fabricated)
	}
	return &cv, ""
}
