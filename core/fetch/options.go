// ABOUTME: Immutable run configuration and collaborators of the fetch orchestrator
// ABOUTME: Options are copied into the orchestrator at construction and never mutated

package fetch

import (
	"context"
	"time"

	"content-fetch-api/core/extract"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/core/policy"
	"content-fetch-api/core/ratelimit"
)

// Options is the run configuration
type Options struct {
	// AllowHeadless opts every domain into headless rendering
	AllowHeadless bool

	// AllowHTMLFallback lets a failed provider lookup fall through to direct HTTP
	AllowHTMLFallback bool

	// RequestIntervalFloor is the minimum spacing between same-domain requests
	RequestIntervalFloor time.Duration

	// MinBodyLength is the thin content threshold in characters
	MinBodyLength int

	// UserAgent is the agent robots.txt rules are evaluated for
	UserAgent string

	// RespectCrawlDelay raises a domain's minimum delay to its robots crawl-delay
	RespectCrawlDelay bool

	// APIResultCount is how many provider results are searched for the target URL
	APIResultCount int
}

// DefaultOptions returns fallback on, 200 character threshold and crawl-delay respected
func DefaultOptions() Options {
	return Options{
		AllowHTMLFallback: true,
		MinBodyLength:     200,
		UserAgent:         "Mozilla/5.0 (compatible; ar-bot/1.0)",
		RespectCrawlDelay: true,
		APIResultCount:    5,
	}
}

// RobotsChecker answers robots.txt questions
type RobotsChecker interface {
	IsAllowed(ctx context.Context, rawURL, userAgent string) bool
	CrawlDelay(ctx context.Context, rawURL, userAgent string) time.Duration
}

// Components are the collaborators the orchestrator drives. Search and
// Renderer are optional; their absence removes the matching strategy.
type Components struct {
	Resolver  *policy.Resolver
	Retry     *policy.RetryPolicy
	Limiter   *ratelimit.Limiter
	Robots    RobotsChecker
	HTTP      interfaces.PageFetcher
	Renderer  interfaces.Renderer
	Search    interfaces.SearchProvider
	Extractor *extract.Extractor
	Dump      interfaces.DumpStorage
	Logger    interfaces.Logger
}
