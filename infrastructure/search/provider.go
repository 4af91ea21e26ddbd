// ABOUTME: Shared plumbing for provider search API clients
// ABOUTME: Paces outbound calls with x/time/rate and maps HTTP failures to typed errors

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	coreerrors "content-fetch-api/core/errors"
	"content-fetch-api/core/interfaces"
)

// DefaultInterval is the minimum spacing between calls to one provider
const DefaultInterval = 1200 * time.Millisecond

// Pacer spaces outbound provider calls
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one call per interval. interval <= 0 disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call may be made
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// CheckResponse returns an ExternalAPIError for any non-200 response,
// including a short excerpt of the body.
func CheckResponse(api string, resp interfaces.Response) error {
	if resp.StatusCode() == http.StatusOK {
		return nil
	}

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body(), 300))
	msg := strings.TrimSpace(string(excerpt))
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		msg = "credential rejected: " + msg
	case http.StatusTooManyRequests:
		msg = "rate limit exceeded: " + msg
	}
	return &coreerrors.ExternalAPIError{
		StatusCode: resp.StatusCode(),
		Message:    msg,
		API:        api,
	}
}

// ValidQuery rejects blank queries
func ValidQuery(query string, count int) error {
	if strings.TrimSpace(query) == "" {
		return &coreerrors.ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if count < 1 {
		return &coreerrors.ValidationError{Field: "count", Message: fmt.Sprintf("must be positive, got %d", count)}
	}
	return nil
}
