// ABOUTME: Response DTOs for the fetch, collect, robots and policy endpoints
// ABOUTME: Flattens domain results into a stable JSON shape

package responses

import (
	"content-fetch-api/core/domain"
)

// FetchResult is one URL's outcome
type FetchResult struct {
	URL        string                   `json:"url"`
	FinalURL   string                   `json:"final_url,omitempty"`
	Domain     string                   `json:"domain"`
	Status     string                   `json:"status" enum:"success,thin_content,blocked,timeout,error"`
	Strategy   string                   `json:"strategy_used" enum:"api,http,headless,none"`
	HTTPStatus int                      `json:"http_status,omitempty"`
	LatencyMs  int64                    `json:"latency_ms"`
	Attempts   int                      `json:"attempts"`
	LastState  string                   `json:"last_state,omitempty"`
	Reason     string                   `json:"reason,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Content    *domain.ExtractedContent `json:"content,omitempty"`
}

// Summary counts results by status
type Summary struct {
	Total       int `json:"total"`
	Success     int `json:"success"`
	ThinContent int `json:"thin_content"`
	Blocked     int `json:"blocked"`
	Timeout     int `json:"timeout"`
	Error       int `json:"error"`
}

// FetchResponse answers a fetch batch in request order
type FetchResponse struct {
	Results []FetchResult `json:"results"`
	Summary Summary       `json:"summary"`
}

// CollectResponse answers a collect query
type CollectResponse struct {
	Query   string        `json:"query"`
	Target  int           `json:"target"`
	Results []FetchResult `json:"results"`
}

// RobotsResponse reports a robots.txt verdict
type RobotsResponse struct {
	URL           string  `json:"url"`
	Origin        string  `json:"origin"`
	Agent         string  `json:"agent"`
	Allowed       bool    `json:"allowed"`
	AssumeAllowed bool    `json:"assume_allowed" doc:"robots.txt was unavailable and the URL is allowed by default"`
	CrawlDelaySec float64 `json:"crawl_delay_seconds,omitempty"`
}

// PolicyResponse reports the effective per-domain policy
type PolicyResponse struct {
	Domain        string  `json:"domain"`
	Source        string  `json:"source"`
	AllowHeadless bool    `json:"allow_headless"`
	MinDelayMs    int64   `json:"min_delay_ms"`
	MaxDelayMs    int64   `json:"max_delay_ms"`
	TimeoutSec    float64 `json:"timeout_seconds"`
	MaxRetries    int     `json:"max_retries"`
}
