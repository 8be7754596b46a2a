// Package source normalizes heterogeneous job inputs (pasted text, a URL to
// scrape, a structured feed record) into one canonical JobPosting shape.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/fetch"
	"github.com/jonathan/job-agent/internal/llm"
	"github.com/jonathan/job-agent/internal/types"
)

// ExtractionError reports malformed or unsupported input. Extraction errors
// are not retried: they almost always mean the input itself is bad.
type ExtractionError struct {
	Source  types.Source
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed for %s source: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed for %s source: %s", e.Source, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Adapter converts raw input into a canonical JobPosting.
type Adapter interface {
	Extract(ctx context.Context, raw types.RawInput) (*types.JobPosting, error)
}

// Options configures the extractor.
type Options struct {
	// MinDescription is the minimum accepted description length in runes.
	MinDescription int
	// UseBrowser enables the headless-browser fallback for SPA pages.
	UseBrowser bool
}

// Extractor is the production Adapter. URL extraction combines an HTTP fetch
// with LLM structured extraction; manual and feed inputs are normalized
// locally.
type Extractor struct {
	client llm.Client
	opts   Options
	logger *zap.Logger
}

// NewExtractor builds an Extractor. The LLM client may be nil when only
// manual and feed sources are in use.
func NewExtractor(client llm.Client, opts Options, logger *zap.Logger) *Extractor {
	if opts.MinDescription <= 0 {
		opts.MinDescription = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, opts: opts, logger: logger}
}

// Extract normalizes the raw input into a JobPosting.
func (e *Extractor) Extract(ctx context.Context, raw types.RawInput) (*types.JobPosting, error) {
	var (
		posting *types.JobPosting
		err     error
	)
	switch raw.Source {
	case types.SourceManual:
		posting, err = e.extractManual(raw)
	case types.SourceFeed:
		posting, err = e.extractFeed(raw)
	case types.SourceURL:
		posting, err = e.extractURL(ctx, raw)
	default:
		return nil, &ExtractionError{Source: raw.Source, Message: "unknown source"}
	}
	if err != nil {
		return nil, err
	}

	if err := e.checkPosting(raw.Source, posting); err != nil {
		return nil, err
	}
	return posting, nil
}

func (e *Extractor) extractManual(raw types.RawInput) (*types.JobPosting, error) {
	if raw.Manual == nil {
		return nil, &ExtractionError{Source: raw.Source, Message: "manual input payload is missing"}
	}
	m := raw.Manual
	return &types.JobPosting{
		Title:        strings.TrimSpace(m.Title),
		Company:      strings.TrimSpace(m.Company),
		Location:     strings.TrimSpace(m.Location),
		Description:  CleanText(m.Description),
		Requirements: CleanText(m.Requirements),
		URL:          strings.TrimSpace(m.URL),
		Source:       types.SourceManual,
	}, nil
}

// feedRecord is the structured payload a job feed delivers.
type feedRecord struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	URL          string `json:"url"`
}

func (e *Extractor) extractFeed(raw types.RawInput) (*types.JobPosting, error) {
	if len(raw.Feed) == 0 {
		return nil, &ExtractionError{Source: raw.Source, Message: "feed payload is missing"}
	}
	var rec feedRecord
	if err := json.Unmarshal(raw.Feed, &rec); err != nil {
		return nil, &ExtractionError{Source: raw.Source, Message: "feed payload is not valid JSON", Cause: err}
	}
	return &types.JobPosting{
		Title:        strings.TrimSpace(rec.Title),
		Company:      strings.TrimSpace(rec.Company),
		Location:     strings.TrimSpace(rec.Location),
		Description:  CleanText(rec.Description),
		Requirements: CleanText(rec.Requirements),
		URL:          strings.TrimSpace(rec.URL),
		Source:       types.SourceFeed,
	}, nil
}

func (e *Extractor) extractURL(ctx context.Context, raw types.RawInput) (*types.JobPosting, error) {
	if strings.TrimSpace(raw.URL) == "" {
		return nil, &ExtractionError{Source: raw.Source, Message: "url is missing"}
	}
	if e.client == nil {
		return nil, &ExtractionError{Source: raw.Source, Message: "url extraction requires an LLM client"}
	}

	result, err := fetch.URL(ctx, raw.URL)
	if err != nil {
		return nil, &ExtractionError{Source: raw.Source, Message: "failed to fetch posting page", Cause: err}
	}

	text, err := fetch.ExtractMainText(result.HTML)
	if err != nil {
		return nil, &ExtractionError{Source: raw.Source, Message: "failed to extract page text", Cause: err}
	}

	if e.opts.UseBrowser && fetch.ShouldUseBrowser(text) {
		e.logger.Debug("content too short, falling back to browser rendering",
			zap.String("url", raw.URL), zap.Int("chars", len(text)))
		html, browserErr := fetch.WithBrowser(ctx, raw.URL, fetch.DefaultTimeout)
		if browserErr != nil {
			e.logger.Warn("browser rendering failed, using HTTP content", zap.Error(browserErr))
		} else if rendered, exErr := fetch.ExtractMainText(html); exErr == nil {
			text = rendered
		}
	}

	cleaned := CleanText(text)
	posting, err := e.parseWithLLM(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	posting.URL = raw.URL
	posting.Source = types.SourceURL
	return posting, nil
}

// parseWithLLM asks the model to pull structured fields out of page text.
func (e *Extractor) parseWithLLM(ctx context.Context, pageText string) (*types.JobPosting, error) {
	prompt := buildExtractionPrompt(pageText)

	out, err := e.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, &ExtractionError{Source: types.SourceURL, Message: "llm extraction failed", Cause: err}
	}

	var posting types.JobPosting
	if err := json.Unmarshal([]byte(out), &posting); err != nil {
		return nil, &ExtractionError{Source: types.SourceURL, Message: "llm returned invalid JSON", Cause: err}
	}
	posting.Description = CleanText(posting.Description)
	posting.Requirements = CleanText(posting.Requirements)
	return &posting, nil
}

func (e *Extractor) checkPosting(src types.Source, p *types.JobPosting) error {
	if strings.TrimSpace(p.Title) == "" {
		return &ExtractionError{Source: src, Message: "posting has no title"}
	}
	if strings.TrimSpace(p.Company) == "" {
		return &ExtractionError{Source: src, Message: "posting has no company"}
	}
	if len([]rune(strings.TrimSpace(p.Description))) < e.opts.MinDescription {
		return &ExtractionError{
			Source:  src,
			Message: fmt.Sprintf("description shorter than %d characters", e.opts.MinDescription),
		}
	}
	return nil
}

func buildExtractionPrompt(pageText string) string {
	var sb strings.Builder
	sb.WriteString("Extract the job posting from the page text below.\n\n")
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	sb.WriteString("  \"title\": string,        // job title (required)\n")
	sb.WriteString("  \"company\": string,      // hiring company name (required)\n")
	sb.WriteString("  \"location\": string,     // location or \"Remote\"\n")
	sb.WriteString("  \"description\": string,  // full role description (required)\n")
	sb.WriteString("  \"requirements\": string  // requirements section, empty if none\n")
	sb.WriteString("}\n\n")
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation.\n\n")
	sb.WriteString("Page text:\n")
	sb.WriteString(pageText)
	return sb.String()
}
