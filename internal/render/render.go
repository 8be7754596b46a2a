// Package render turns a structured CV into an application document on disk.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jonathan/job-agent/internal/types"
)

// Error reports a document rendering failure.
type Error struct {
	TemplateID string
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error (template %s): %s: %v", e.TemplateID, e.Message, e.Cause)
	}
	return fmt.Sprintf("render error (template %s): %s", e.TemplateID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Renderer produces an application document from a composed CV and returns
// the path of the written file.
type Renderer interface {
	Render(ctx context.Context, cv *types.StructuredCV, posting *types.JobPosting) (string, error)
}

// DocumentName builds the canonical document file name:
// <candidate>_<company>_<title>.tex, or with a _vN suffix for revisions
// beyond the first. All components are sanitized to filesystem-safe slugs.
func DocumentName(candidateName, company, title string, version int) string {
	base := fmt.Sprintf("%s_%s_%s", slugify(candidateName), slugify(company), slugify(title))
	if version > 1 {
		base = fmt.Sprintf("%s_v%d", base, version)
	}
	return base + ".tex"
}

// slugify lowercases a name and collapses non-alphanumeric runs into single
// hyphens, producing a filesystem-safe component.
func slugify(s string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// nextVersion finds the first free version number for a document so a retry
// never overwrites the reviewed revision.
func nextVersion(dir, candidateName, company, title string) int {
	for v := 1; ; v++ {
		name := DocumentName(candidateName, company, title, v)
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			return v
		}
	}
}
