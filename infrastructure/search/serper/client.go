// ABOUTME: Serper Google search API client
// ABOUTME: Posts JSON queries and pages through organic results

package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/infrastructure/search"
)

const (
	// DefaultEndpoint is the Serper search API
	DefaultEndpoint = "https://google.serper.dev/search"

	// MaxPerRequest is the largest num Serper accepts
	MaxPerRequest = 100

	maxPages = 10
)

// Client queries the Serper API
type Client struct {
	apiKey   string
	endpoint string
	http     interfaces.HTTPClient
	pacer    *search.Pacer
	logger   interfaces.Logger
}

// NewClient creates a Serper client. An empty endpoint uses DefaultEndpoint.
func NewClient(apiKey, endpoint string, deps interfaces.Dependencies, pacer *search.Pacer) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if pacer == nil {
		pacer = search.NewPacer(search.DefaultInterval)
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		http:     deps.HTTPClient,
		pacer:    pacer,
		logger:   deps.Logger,
	}
}

// Name identifies the provider
func (c *Client) Name() string { return "serper" }

type request struct {
	Q    string `json:"q"`
	Num  int    `json:"num"`
	Page int    `json:"page,omitempty"`
}

type apiResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search returns up to count organic results for query
func (c *Client) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	if err := search.ValidQuery(query, count); err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	for page := 1; page <= maxPages && len(results) < count; page++ {
		batch := count - len(results)
		if batch > MaxPerRequest {
			batch = MaxPerRequest
		}

		items, err := c.page(ctx, request{Q: query, Num: batch, Page: pageParam(page)})
		if err != nil {
			if len(results) > 0 {
				c.warn("Serper pagination stopped early", query, err)
				break
			}
			return nil, err
		}
		results = append(results, items...)
		if len(items) < batch {
			break
		}
	}

	if len(results) > count {
		results = results[:count]
	}
	return results, nil
}

// pageParam omits the page field for the first page
func pageParam(page int) int {
	if page == 1 {
		return 0
	}
	return page
}

func (c *Client) page(ctx context.Context, req request) ([]domain.SearchResult, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(ctx, c.endpoint, bytes.NewReader(payload), map[string]string{
		"X-API-KEY":    c.apiKey,
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body().Close()

	if err := search.CheckResponse("serper", resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(parsed.Organic))
	for _, r := range parsed.Organic {
		if !strings.HasPrefix(r.Link, "http") {
			continue
		}
		results = append(results, domain.SearchResult{
			URL:         r.Link,
			Title:       r.Title,
			Description: r.Snippet,
		})
	}
	return results, nil
}

func (c *Client) warn(msg, query string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, map[string]interface{}{
		"provider": c.Name(),
		"query":    query,
		"error":    err.Error(),
	})
}
