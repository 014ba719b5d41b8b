package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Chrome drives a headless Chrome process over the DevTools protocol. One
// browser process is shared across the whole run; each domain gets its own
// tab via NewPage.
type Chrome struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChrome launches the browser process. A missing or broken Chrome binary
// fails here rather than on the first domain.
func NewChrome() (*Chrome, error) {
	// Setup browser options
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
	)

	// Create a browser context that will be shared across all domain runs
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, &SessionError{Op: "start", Err: err}
	}

	return &Chrome{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewPage opens a fresh tab sharing the browser process.
func (c *Chrome) NewPage() (Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close tears down every open tab along with the browser process.
func (c *Chrome) Close() error {
	c.browserCancel()
	c.allocCancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on this tab, honoring the caller's deadline.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var pageHTML string
	if err := p.run(ctx, chromedp.OuterHTML("html", &pageHTML)); err != nil {
		return "", &SessionError{Op: "content", Err: err}
	}
	return pageHTML, nil
}

func (p *chromePage) ElementsHTML(ctx context.Context, selector string) ([]string, error) {
	// JavaScript for finding elements and serializing them
	js := fmt.Sprintf(`
	(() => {
		const elements = document.querySelectorAll(%q);
		const results = [];

		elements.forEach(el => {
			results.push(el.outerHTML);
		});

		return JSON.stringify(results);
	})()
	`, selector)

	var nodesJSON string
	if err := p.run(ctx, chromedp.Evaluate(js, &nodesJSON)); err != nil {
		return nil, &SessionError{Op: "query " + selector, Err: err}
	}

	var elements []string
	if err := json.Unmarshal([]byte(nodesJSON), &elements); err != nil {
		return nil, fmt.Errorf("parsing elements for selector %s: %w", selector, err)
	}
	return elements, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
