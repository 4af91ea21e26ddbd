// ABOUTME: Options shared by the headless renderers
// ABOUTME: Bounds concurrent browser sessions and enforces a hard per-render timeout

package render

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Options configures a headless renderer
type Options struct {
	// Timeout is the hard limit for one render, independent of the caller's deadline
	Timeout time.Duration

	// Sessions bounds how many pages render at once
	Sessions int

	UserAgent    string
	MaxBodyBytes int

	// SettleDelay is how long scripts may run after the load event
	SettleDelay time.Duration
}

// DefaultOptions returns a 30s timeout, two sessions and a 5MB body cap
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		Sessions:     2,
		MaxBodyBytes: 5 * 1024 * 1024,
		SettleDelay:  500 * time.Millisecond,
	}
}

// WithDefaults fills zero fields from DefaultOptions
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Sessions <= 0 {
		o.Sessions = def.Sessions
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = def.MaxBodyBytes
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	return o
}

// PageCloseTimeout bounds tab cleanup, which runs on a fresh context because
// the render context has usually ended by then
const PageCloseTimeout = 5 * time.Second

// NewSessions bounds concurrent renders to n pages
func NewSessions(n int) *semaphore.Weighted {
	if n < 1 {
		n = 1
	}
	return semaphore.NewWeighted(int64(n))
}

// Truncate caps html at max bytes
func Truncate(html string, max int) string {
	if max > 0 && len(html) > max {
		return html[:max]
	}
	return html
}

// Sleep waits d unless ctx ends first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
