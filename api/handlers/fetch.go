// ABOUTME: Fetch and collect handlers for the Huma API
// ABOUTME: Runs URL batches through the worker pool and search queries through the collector

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"content-fetch-api/api/dto/mappers"
	"content-fetch-api/api/dto/requests"
	"content-fetch-api/api/dto/responses"
	"content-fetch-api/core/domain"
	"content-fetch-api/core/fetch"
)

// Collector resolves a search query into usable pages
type Collector interface {
	Collect(ctx context.Context, query string, target int) ([]domain.FetchResult, error)
}

// FetchHandler serves the batch fetch and collect endpoints
type FetchHandler struct {
	runner    fetch.BatchRunner
	collector Collector
}

// NewFetchHandler creates a fetch handler. collector may be nil when no
// search provider is configured; collect requests then fail with 503.
func NewFetchHandler(runner fetch.BatchRunner, collector Collector) *FetchHandler {
	return &FetchHandler{runner: runner, collector: collector}
}

// RegisterRoutes registers fetch routes
func (h *FetchHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "fetchPages",
		Method:      http.MethodPost,
		Path:        "/v1/fetch",
		Summary:     "Fetch pages",
		Description: "Fetches each URL with escalating strategies and returns extracted content in request order",
		Tags:        []string{"Fetch"},
	}, h.Fetch)

	huma.Register(api, huma.Operation{
		OperationID: "collectPages",
		Method:      http.MethodPost,
		Path:        "/v1/collect",
		Summary:     "Collect pages for a query",
		Description: "Searches the configured provider and fetches results until the requested number of pages succeed",
		Tags:        []string{"Fetch"},
	}, h.Collect)
}

// FetchInput defines the input for the fetch operation
type FetchInput struct {
	Body requests.FetchRequest
}

// FetchOutput defines the output for the fetch operation
type FetchOutput struct {
	Body responses.FetchResponse
}

// Fetch handles POST /v1/fetch
func (h *FetchHandler) Fetch(ctx context.Context, input *FetchInput) (*FetchOutput, error) {
	if len(input.Body.URLs) == 0 {
		return nil, huma.Error400BadRequest("No URLs provided")
	}

	var results []domain.FetchResult
	for r := range h.runner.Run(ctx, input.Body.ToFetchRequests()) {
		results = append(results, r)
	}
	ordered := mappers.InRequestOrder(input.Body.URLs, results)

	out := &FetchOutput{}
	out.Body.Results = mappers.ToFetchResults(ordered)
	out.Body.Summary = mappers.Summarize(ordered)
	return out, nil
}

// CollectInput defines the input for the collect operation
type CollectInput struct {
	Body requests.CollectRequest
}

// CollectOutput defines the output for the collect operation
type CollectOutput struct {
	Body responses.CollectResponse
}

// Collect handles POST /v1/collect
func (h *FetchHandler) Collect(ctx context.Context, input *CollectInput) (*CollectOutput, error) {
	if h.collector == nil {
		return nil, huma.Error503ServiceUnavailable("No search provider configured")
	}

	count := input.Body.Count
	if count == 0 {
		count = 10
	}

	results, err := h.collector.Collect(ctx, input.Body.Query, count)
	if err != nil {
		return nil, toHumaError(err)
	}

	out := &CollectOutput{}
	out.Body.Query = input.Body.Query
	out.Body.Target = count
	out.Body.Results = mappers.ToFetchResults(results)
	return out, nil
}
