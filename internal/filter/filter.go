// Package filter decides whether an extracted job posting is worth pursuing.
package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/llm"
	"github.com/jonathan/job-agent/internal/types"
)

// Verdict is the outcome of evaluating a posting against the user's criteria.
type Verdict struct {
	Suitable   bool     `json:"suitable"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
	RedFlags   []string `json:"red_flags,omitempty"`
}

// Error reports a failure to evaluate a posting, as opposed to a negative
// verdict.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filter error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("filter error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Filter evaluates job postings for suitability.
type Filter interface {
	Evaluate(ctx context.Context, posting *types.JobPosting) (*Verdict, error)
}

// Passthrough accepts every posting. Used when no criteria are configured.
type Passthrough struct{}

func (Passthrough) Evaluate(_ context.Context, _ *types.JobPosting) (*Verdict, error) {
	return &Verdict{Suitable: true, Reason: "no filter criteria configured", Confidence: 1.0}, nil
}

// LLMFilter judges postings with an LLM against free-form criteria text.
type LLMFilter struct {
	client   llm.Client
	criteria string
	logger   *zap.Logger
}

// NewLLMFilter builds an LLM-backed filter. Criteria is the user's free-form
// description of what roles they want.
func NewLLMFilter(client llm.Client, criteria string, logger *zap.Logger) *LLMFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMFilter{client: client, criteria: criteria, logger: logger}
}

// New returns an LLMFilter when criteria is non-empty, Passthrough otherwise.
func New(client llm.Client, criteria string, logger *zap.Logger) Filter {
	if strings.TrimSpace(criteria) == "" {
		return Passthrough{}
	}
	return NewLLMFilter(client, criteria, logger)
}

func (f *LLMFilter) Evaluate(ctx context.Context, posting *types.JobPosting) (*Verdict, error) {
	prompt := buildFilterPrompt(f.criteria, posting)

	out, err := f.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, &Error{Message: "llm evaluation failed", Cause: err}
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(out), &verdict); err != nil {
		return nil, &Error{Message: "llm returned invalid verdict JSON", Cause: err}
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return nil, &Error{Message: fmt.Sprintf("confidence %v out of range", verdict.Confidence)}
	}

	f.logger.Debug("filter verdict",
		zap.String("company", posting.Company),
		zap.String("title", posting.Title),
		zap.Bool("suitable", verdict.Suitable),
		zap.Float64("confidence", verdict.Confidence))
	return &verdict, nil
}

func buildFilterPrompt(criteria string, posting *types.JobPosting) string {
	var sb strings.Builder
	sb.WriteString("You are screening job postings for a candidate.\n\n")
	sb.WriteString("Candidate criteria:\n")
	sb.WriteString(criteria)
	sb.WriteString("\n\nJob posting:\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", posting.Title))
	sb.WriteString(fmt.Sprintf("Company: %s\n", posting.Company))
	if posting.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", posting.Location))
	}
	sb.WriteString("\nDescription:\n")
	sb.WriteString(posting.Description)
	if posting.Requirements != "" {
		sb.WriteString("\n\nRequirements:\n")
		sb.WriteString(posting.Requirements)
	}
	sb.WriteString("\n\nReturn ONLY valid JSON with this exact structure:\n{\n")
	sb.WriteString("  \"suitable\": boolean,     // does this posting match the criteria\n")
	sb.WriteString("  \"reason\": string,        // one or two sentences explaining the verdict\n")
	sb.WriteString("  \"confidence\": number,    // 0.0 to 1.0\n")
	sb.WriteString("  \"red_flags\": [string]    // concerns, empty array if none\n")
	sb.WriteString("}\n")
	return sb.String()
}
