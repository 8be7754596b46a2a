package render

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/types"
)

//go:embed templates/classic.tex.tmpl
var classicTemplate string

// templates maps template IDs to their sources. A single style ships today;
// the registry keeps template selection a config concern.
var templates = map[string]string{
	"classic": classicTemplate,
}

// TemplateRenderer writes LaTeX documents from Go templates. Rendering is
// deterministic: the same CV and posting always produce the same bytes.
type TemplateRenderer struct {
	templateID string
	outputDir  string
	tmpl       *template.Template
	logger     *zap.Logger
}

// NewTemplateRenderer parses the selected template and prepares the output
// directory.
func NewTemplateRenderer(templateID, outputDir string, logger *zap.Logger) (*TemplateRenderer, error) {
	src, ok := templates[templateID]
	if !ok {
		return nil, &Error{TemplateID: templateID, Message: "unknown template"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// LaTeX is full of braces; template actions use << >> instead.
	tmpl, err := template.New(templateID).
		Delims("<<", ">>").
		Funcs(template.FuncMap{"escape": escapeLaTeX}).
		Parse(src)
	if err != nil {
		return nil, &Error{TemplateID: templateID, Message: "template parse failed", Cause: err}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &Error{TemplateID: templateID, Message: "failed to create output directory", Cause: err}
	}

	return &TemplateRenderer{
		templateID: templateID,
		outputDir:  outputDir,
		tmpl:       tmpl,
		logger:     logger,
	}, nil
}

// Render writes the document and returns its path.
func (r *TemplateRenderer) Render(ctx context.Context, cv *types.StructuredCV, posting *types.JobPosting) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{TemplateID: r.templateID, Message: "render canceled", Cause: err}
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, cv); err != nil {
		return "", &Error{TemplateID: r.templateID, Message: "template execution failed", Cause: err}
	}

	version := nextVersion(r.outputDir, cv.Contact.FullName, posting.Company, posting.Title)
	name := DocumentName(cv.Contact.FullName, posting.Company, posting.Title, version)
	path := filepath.Join(r.outputDir, name)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", &Error{TemplateID: r.templateID, Message: "failed to write document", Cause: err}
	}

	r.logger.Info("document rendered",
		zap.String("path", path),
		zap.String("template", r.templateID),
		zap.Int("version", version))
	return path, nil
}

// escapeLaTeX escapes characters LaTeX treats specially.
func escapeLaTeX(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\textbackslash{}",
		"&", "\\&",
		"%", "\\%",
		"$", "\\$",
		"#", "\\#",
		"_", "\\_",
		"{", "\\{",
		"}", "\\}",
		"~", "\\textasciitilde{}",
		"^", "\\textasciicircum{}",
	)
	return replacer.Replace(s)
}
