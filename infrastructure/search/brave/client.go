// ABOUTME: Brave Search web API client
// ABOUTME: Pages through web.results until the requested count is collected

package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/infrastructure/search"
)

const (
	// DefaultEndpoint is the Brave web search API
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

	// MaxPerRequest is the largest count Brave accepts
	MaxPerRequest = 20

	maxPages = 10
)

// Client queries the Brave Search API
type Client struct {
	apiKey   string
	endpoint string
	http     interfaces.HTTPClient
	pacer    *search.Pacer
	logger   interfaces.Logger
}

// NewClient creates a Brave client. An empty endpoint uses DefaultEndpoint.
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
func (c *Client) Name() string { return "brave" }

type apiResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search returns up to count organic results for query
func (c *Client) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	if err := search.ValidQuery(query, count); err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	for page := 0; page < maxPages && len(results) < count; page++ {
		batch := count - len(results)
		if batch > MaxPerRequest {
			batch = MaxPerRequest
		}

		items, err := c.page(ctx, query, batch, page)
		if err != nil {
			if len(results) > 0 {
				// Keep what earlier pages returned
				c.warn("Brave pagination stopped early", query, err)
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

func (c *Client) page(ctx context.Context, query string, batch, offset int) ([]domain.SearchResult, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(batch))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	resp, err := c.http.Get(ctx, c.endpoint+"?"+params.Encode(), map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body().Close()

	if err := search.CheckResponse("brave", resp); err != nil {
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

	results := make([]domain.SearchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if !strings.HasPrefix(r.URL, "http") {
			continue
		}
		results = append(results, domain.SearchResult{
			URL:         r.URL,
			Title:       r.Title,
			Description: r.Description,
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
