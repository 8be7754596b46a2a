package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-agent/internal/types"
)

func sampleCV() *types.StructuredCV {
	return &types.StructuredCV{
		Contact: types.Contact{FullName: "Jane Doe", Email: "jane@example.com"},
		Summary: "Engineer with 50% more & better LaTeX_escaping",
		Experience: []types.Experience{
			{Company: "Initech", Position: "Senior Engineer", StartDate: "2019-01",
				IsCurrent: true, Description: "Built the billing platform.",
				Achievements: []string{"Cut costs by 30%"}},
		},
		Skills: []types.Skill{{Name: "Go", Category: "Languages"}},
	}
}

func samplePosting() *types.JobPosting {
	return &types.JobPosting{Title: "Staff Engineer", Company: "Hooli & Sons"}
}

func TestDocumentName(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		company   string
		title     string
		version   int
		want      string
	}{
		{"basic", "Jane Doe", "Initech", "Go Engineer", 1, "jane-doe_initech_go-engineer.tex"},
		{"revision", "Jane Doe", "Initech", "Go Engineer", 3, "jane-doe_initech_go-engineer_v3.tex"},
		{"punctuation stripped", "J. Doe", "Hooli & Sons", "Sr. Engineer (Remote)", 1,
			"j-doe_hooli-sons_sr-engineer-remote.tex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentName(tt.candidate, tt.company, tt.title, tt.version))
		})
	}
}

func TestTemplateRendererWritesDocument(t *testing.T) {
	dir := t.TempDir()
	r, err := NewTemplateRenderer("classic", dir, nil)
	require.NoError(t, err)

	path, err := r.Render(context.Background(), sampleCV(), samplePosting())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "jane-doe_hooli-sons_staff-engineer.tex"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(content)
	assert.Contains(t, doc, "Jane Doe")
	assert.Contains(t, doc, "Initech")
	assert.Contains(t, doc, "Cut costs by 30\\%")
	assert.Contains(t, doc, "50\\% more \\& better LaTeX\\_escaping")
	assert.Contains(t, doc, "\\begin{document}")
}

func TestTemplateRendererIsDeterministic(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()

	ra, err := NewTemplateRenderer("classic", dirA, nil)
	require.NoError(t, err)
	rb, err := NewTemplateRenderer("classic", dirB, nil)
	require.NoError(t, err)

	pa, err := ra.Render(context.Background(), sampleCV(), samplePosting())
	require.NoError(t, err)
	pb, err := rb.Render(context.Background(), sampleCV(), samplePosting())
	require.NoError(t, err)

	ca, err := os.ReadFile(pa)
	require.NoError(t, err)
	cb, err := os.ReadFile(pb)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestTemplateRendererVersionsRevisions(t *testing.T) {
	dir := t.TempDir()
	r, err := NewTemplateRenderer("classic", dir, nil)
	require.NoError(t, err)

	first, err := r.Render(context.Background(), sampleCV(), samplePosting())
	require.NoError(t, err)
	second, err := r.Render(context.Background(), sampleCV(), samplePosting())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Contains(t, second, "_v2.tex")

	// The first revision is untouched.
	_, err = os.Stat(first)
	assert.NoError(t, err)
}

func TestNewTemplateRendererUnknownTemplate(t *testing.T) {
	_, err := NewTemplateRenderer("brutalist", t.TempDir(), nil)
	var rErr *Error
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, "brutalist", rErr.TemplateID)
}

func TestEscapeLaTeX(t *testing.T) {
	assert.Equal(t, "a \\& b \\_ c \\%", escapeLaTeX("a & b _ c %"))
	assert.Equal(t, "\\{braces\\}", escapeLaTeX("{braces}"))
}
