package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-agent/internal/types"
)

type fakeLLM struct {
	out string
	err error
}

func (f *fakeLLM) GenerateJSON(context.Context, string) (string, error) {
	return f.out, f.err
}

func (f *fakeLLM) Close() error { return nil }

func posting() *types.JobPosting {
	return &types.JobPosting{
		Title:       "Staff Engineer",
		Company:     "Initech",
		Description: "Own the platform.",
	}
}

func TestPassthroughAcceptsEverything(t *testing.T) {
	verdict, err := Passthrough{}.Evaluate(context.Background(), posting())
	require.NoError(t, err)
	assert.True(t, verdict.Suitable)
	assert.Equal(t, 1.0, verdict.Confidence)
}

func TestNewSelectsPassthroughWithoutCriteria(t *testing.T) {
	f := New(&fakeLLM{}, "   ", nil)
	assert.IsType(t, Passthrough{}, f)

	f = New(&fakeLLM{}, "remote Go roles only", nil)
	assert.IsType(t, &LLMFilter{}, f)
}

func TestLLMFilterParsesVerdict(t *testing.T) {
	f := NewLLMFilter(&fakeLLM{
		out: `{"suitable": false, "reason": "requires on-site in Tokyo", "confidence": 0.9, "red_flags": ["relocation"]}`,
	}, "remote only", nil)

	verdict, err := f.Evaluate(context.Background(), posting())
	require.NoError(t, err)
	assert.False(t, verdict.Suitable)
	assert.Equal(t, "requires on-site in Tokyo", verdict.Reason)
	assert.InDelta(t, 0.9, verdict.Confidence, 0.001)
	assert.Equal(t, []string{"relocation"}, verdict.RedFlags)
}

func TestLLMFilterRejectsInvalidJSON(t *testing.T) {
	f := NewLLMFilter(&fakeLLM{out: "maybe?"}, "remote only", nil)

	_, err := f.Evaluate(context.Background(), posting())
	var fErr *Error
	require.ErrorAs(t, err, &fErr)
	assert.Contains(t, fErr.Message, "invalid verdict")
}

func TestLLMFilterRejectsOutOfRangeConfidence(t *testing.T) {
	f := NewLLMFilter(&fakeLLM{
		out: `{"suitable": true, "reason": "ok", "confidence": 7.5}`,
	}, "remote only", nil)

	_, err := f.Evaluate(context.Background(), posting())
	var fErr *Error
	require.ErrorAs(t, err, &fErr)
}

func TestLLMFilterWrapsClientError(t *testing.T) {
	cause := errors.New("rate limited")
	f := NewLLMFilter(&fakeLLM{err: cause}, "remote only", nil)

	_, err := f.Evaluate(context.Background(), posting())
	var fErr *Error
	require.ErrorAs(t, err, &fErr)
	assert.ErrorIs(t, err, cause)
}

func TestBuildFilterPromptIncludesCriteriaAndPosting(t *testing.T) {
	p := posting()
	p.Requirements = "10 years of COBOL"
	prompt := buildFilterPrompt("remote Go roles", p)

	assert.Contains(t, prompt, "remote Go roles")
	assert.Contains(t, prompt, "Staff Engineer")
	assert.Contains(t, prompt, "Initech")
	assert.Contains(t, prompt, "10 years of COBOL")
}
