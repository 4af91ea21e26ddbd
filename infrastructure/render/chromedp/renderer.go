// ABOUTME: Headless renderer backed by chromedp over a shared Chrome allocator
// ABOUTME: Each render runs in its own tab with a hard timeout

package chromedp

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/infrastructure/render"
)

// Renderer implements interfaces.Renderer with chromedp
type Renderer struct {
	opts          render.Options
	sem           *semaphore.Weighted
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	logger        interfaces.Logger
}

// New starts Chrome. An error here means headless rendering is unavailable.
func New(opts render.Options, logger interfaces.Logger) (*Renderer, error) {
	opts = opts.WithDefaults()

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Running with no actions starts the browser
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &Renderer{
		opts:          opts,
		sem:           render.NewSessions(opts.Sessions),
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		logger:        logger,
	}, nil
}

// Fetch renders url in a new tab. The status is always 200.
func (r *Renderer) Fetch(ctx context.Context, url string) (*domain.RawResponse, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	// cancelTab closes the target on its own context, so cleanup survives an expired ctx
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	runCtx, cancel := context.WithTimeout(tabCtx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	var html, finalURL string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(r.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("chromedp run: %w", err)
	}
	if finalURL == "" {
		finalURL = url
	}

	latency := time.Since(start)
	if r.logger != nil {
		r.logger.Debug("Rendered page", map[string]interface{}{
			"url":        url,
			"final_url":  finalURL,
			"latency_ms": latency.Milliseconds(),
			"html_bytes": len(html),
		})
	}

	return &domain.RawResponse{
		URL:         url,
		FinalURL:    finalURL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(render.Truncate(html, r.opts.MaxBodyBytes)),
		Latency:     latency,
	}, nil
}

// Close stops Chrome
func (r *Renderer) Close() error {
	r.cancelBrowser()
	r.cancelAlloc()
	return nil
}
