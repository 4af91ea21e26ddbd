// ABOUTME: Search-driven collection of readable pages for a query
// ABOUTME: Oversamples provider results, drops robots-disallowed ones and stops at the target count

package fetch

import (
	"context"
	"fmt"
	"sort"

	"content-fetch-api/core/domain"
	coreerrors "content-fetch-api/core/errors"
	"content-fetch-api/core/interfaces"
)

// MinCandidatePool is the smallest number of search results requested
const MinCandidatePool = 30

// BatchRunner fetches a batch, delivering exactly one result per request
type BatchRunner interface {
	Run(ctx context.Context, reqs []domain.FetchRequest) <-chan domain.FetchResult
}

// Collector turns a search query into a set of successfully fetched pages
type Collector struct {
	search    interfaces.SearchProvider
	robots    RobotsChecker
	runner    BatchRunner
	userAgent string
	logger    interfaces.Logger
}

// NewCollector creates a collector. search and runner are required.
func NewCollector(search interfaces.SearchProvider, robots RobotsChecker, runner BatchRunner, userAgent string, logger interfaces.Logger) *Collector {
	return &Collector{
		search:    search,
		robots:    robots,
		runner:    runner,
		userAgent: userAgent,
		logger:    logger,
	}
}

// CandidatePool returns how many search results are requested for target pages
func CandidatePool(target int) int {
	if n := 3 * target; n > MinCandidatePool {
		return n
	}
	return MinCandidatePool
}

// Collect searches query and returns up to target successful results in
// search rank order. Fewer results are returned when the pool runs dry.
func (c *Collector) Collect(ctx context.Context, query string, target int) ([]domain.FetchResult, error) {
	if query == "" {
		return nil, &coreerrors.ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if target < 1 {
		return nil, &coreerrors.ValidationError{Field: "count", Message: "must be at least 1"}
	}
	if c.search == nil {
		return nil, &coreerrors.ConfigError{Setting: "search_provider", Message: "collection needs a search provider"}
	}

	hits, err := c.search.Search(ctx, query, CandidatePool(target))
	if err != nil {
		return nil, fmt.Errorf("%s search for %q: %w", c.search.Name(), query, err)
	}

	rank := make(map[string]int, len(hits))
	reqs := make([]domain.FetchRequest, 0, len(hits))
	skipped := 0
	for _, hit := range hits {
		if _, dup := rank[hit.URL]; dup || hit.URL == "" {
			continue
		}
		if c.robots != nil && !c.robots.IsAllowed(ctx, hit.URL, c.userAgent) {
			skipped++
			continue
		}
		rank[hit.URL] = len(reqs)
		reqs = append(reqs, domain.FetchRequest{URL: hit.URL})
	}

	if c.logger != nil {
		c.logger.Info("Collecting pages", map[string]interface{}{
			"query":      query,
			"target":     target,
			"candidates": len(reqs),
			"disallowed": skipped,
		})
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var found []domain.FetchResult
	for res := range c.runner.Run(runCtx, reqs) {
		if len(found) >= target || !res.OK() {
			continue
		}
		found = append(found, res)
		if len(found) == target {
			// Remaining fetches finish as cancelled; keep draining so the pool winds down
			cancel()
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return rank[found[i].URL] < rank[found[j].URL]
	})
	return found, nil
}
