// ABOUTME: Strategy interfaces for the fetch orchestrator
// ABOUTME: Defines contracts for page retrieval, headless rendering, provider search and debug dumps

package interfaces

import (
	"context"

	"content-fetch-api/core/domain"
)

// PageFetcher retrieves one page. Implementations never retry on their own;
// retry and escalation decisions belong to the orchestrator. A non-2xx status
// is returned as a RawResponse, not an error. Errors mean no response arrived.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.RawResponse, error)
}

// Renderer is a PageFetcher that executes page scripts in a headless browser.
type Renderer interface {
	PageFetcher

	// Close releases the browser process
	Close() error
}

// SearchProvider queries a provider search API
type SearchProvider interface {
	// Name identifies the provider in logs and results
	Name() string

	// Search returns up to count organic results for query
	Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error)
}

// DumpStorage persists raw fetched bodies for offline inspection
type DumpStorage interface {
	// Dump writes body under a name derived from url and suffix. Failures are
	// reported but must never affect the fetch outcome.
	Dump(url, suffix string, body []byte) error
}
