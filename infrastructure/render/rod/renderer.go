// ABOUTME: Headless renderer backed by go-rod driving a launched Chromium
// ABOUTME: One browser per process; each render opens and closes its own page

package rod

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/semaphore"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/infrastructure/render"
)

// Renderer implements interfaces.Renderer with go-rod
type Renderer struct {
	opts     render.Options
	sem      *semaphore.Weighted
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   interfaces.Logger
}

// New launches a headless browser. An error here means headless rendering is unavailable.
func New(opts render.Options, logger interfaces.Logger) (*Renderer, error) {
	opts = opts.WithDefaults()

	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Renderer{
		opts:     opts,
		sem:      render.NewSessions(opts.Sessions),
		browser:  browser,
		launcher: l,
		logger:   logger,
	}, nil
}

// Fetch renders url and returns the resulting DOM. The status is always 200
// since the browser does not expose the navigation response here.
func (r *Renderer) Fetch(ctx context.Context, url string) (*domain.RawResponse, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	page, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer r.closePage(page)

	if r.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.opts.UserAgent}); err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if err := render.Sleep(ctx, r.opts.SettleDelay); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
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

// closePage closes the tab even when the render context has already expired
func (r *Renderer) closePage(page *rod.Page) {
	ctx, cancel := context.WithTimeout(context.Background(), render.PageCloseTimeout)
	defer cancel()
	if err := page.Context(ctx).Close(); err != nil && r.logger != nil {
		r.logger.Warn("Failed to close rendered page", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Close shuts the browser down
func (r *Renderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
	}
	if r.launcher != nil {
		r.launcher.Kill()
	}
	return err
}
