package apply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-agent/internal/types"
)

func TestManualApplyReturnsReceipt(t *testing.T) {
	a := NewManual(nil)

	posting := &types.JobPosting{Title: "Engineer", Company: "Initech"}
	receipt, err := a.Apply(context.Background(), posting, "/out/jane_initech_engineer.tex")
	require.NoError(t, err)

	assert.Equal(t, "manual", receipt.Method)
	assert.Equal(t, "/out/jane_initech_engineer.tex", receipt.Reference)
	assert.Contains(t, receipt.Message, "Initech")
	assert.WithinDuration(t, time.Now().UTC(), receipt.SubmittedAt, time.Minute)
}

func TestBrowserApplyRequiresURL(t *testing.T) {
	a := NewBrowser(5*time.Second, nil)

	_, err := a.Apply(context.Background(), &types.JobPosting{Title: "Engineer", Company: "Initech"}, "/out/doc.tex")
	var aErr *Error
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, "browser", aErr.Method)
	assert.Contains(t, aErr.Message, "no URL")
}
