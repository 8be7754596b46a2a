package apply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/types"
)

// Browser drives a headless browser at the posting URL to submit the
// application. It currently verifies the posting page is reachable and that
// an application form is present; actual form-filling is site-specific and
// lands per job board.
type Browser struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewBrowser(timeout time.Duration, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{timeout: timeout, logger: logger}
}

func (b *Browser) Apply(ctx context.Context, posting *types.JobPosting, documentPath string) (*types.Receipt, error) {
	if strings.TrimSpace(posting.URL) == "" {
		return nil, &Error{Method: "browser", Message: "posting has no URL to apply at"}
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(posting.URL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{Method: "browser", Message: "failed to load posting page", Cause: err}
	}

	if !strings.Contains(strings.ToLower(html), "<form") {
		return nil, &Error{
			Method:  "browser",
			Message: fmt.Sprintf("no application form found at %s", posting.URL),
		}
	}

	// TODO: per-board form automation (Greenhouse, Lever selectors).
	return nil, &Error{
		Method:  "browser",
		Message: "automated form submission is not available for this job board",
	}
}
