// ABOUTME: Fetch domain models shared by the orchestrator, strategies and callers
// ABOUTME: Defines requests, raw responses, results and the status/strategy enums

package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the terminal classification of a fetch
type Status int

const (
	StatusSuccess Status = iota
	StatusThinContent
	StatusBlocked
	StatusTimeout
	StatusError
)

var statusNames = map[Status]string{
	StatusSuccess:     "success",
	StatusThinContent: "thin_content",
	StatusBlocked:     "blocked",
	StatusTimeout:     "timeout",
	StatusError:       "error",
}

// String returns the wire name of the status
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	for k, v := range statusNames {
		if v == strings.ToLower(string(text)) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// Strategy identifies the acquisition mechanism that produced a response
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyAPI
	StrategyHTTP
	StrategyHeadless
)

var strategyNames = map[Strategy]string{
	StrategyNone:     "none",
	StrategyAPI:      "api",
	StrategyHTTP:     "http",
	StrategyHeadless: "headless",
}

// String returns the wire name of the strategy
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Strategy) UnmarshalText(text []byte) error {
	for k, v := range strategyNames {
		if v == strings.ToLower(string(text)) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown strategy %q", string(text))
}

// FetchRequest asks for one page. It is created per URL and discarded once
// its FetchResult has been produced.
type FetchRequest struct {
	// URL is the absolute target URL
	URL string `json:"url"`

	// MinBodyLength overrides the run-wide thin content threshold when > 0
	MinBodyLength int `json:"min_body_length,omitempty"`

	// Deadline bounds every network and render operation for this URL
	Deadline time.Time `json:"deadline,omitempty"`

	// Timeout is a relative alternative to Deadline, applied when the fetch starts
	Timeout time.Duration `json:"timeout,omitempty"`
}

// EffectiveDeadline returns the earliest of Deadline and now+Timeout
func (r FetchRequest) EffectiveDeadline(now time.Time) (time.Time, bool) {
	var deadline time.Time
	if !r.Deadline.IsZero() {
		deadline = r.Deadline
	}
	if r.Timeout > 0 {
		rel := now.Add(r.Timeout)
		if deadline.IsZero() || rel.Before(deadline) {
			deadline = rel
		}
	}
	return deadline, !deadline.IsZero()
}

// RawResponse is what any strategy hands back before extraction
type RawResponse struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	Latency     time.Duration
}

// IsSuccess reports whether the status code is 2xx
func (r *RawResponse) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// FetchResult is the uniform outcome of one FetchRequest. It is always fully
// formed when delivered to a caller.
type FetchResult struct {
	URL        string            `json:"url"`
	FinalURL   string            `json:"final_url,omitempty"`
	Domain     string            `json:"domain"`
	Status     Status            `json:"status"`
	Strategy   Strategy          `json:"strategy_used"`
	HTTPStatus int               `json:"http_status,omitempty"`
	Latency    time.Duration     `json:"latency"`
	Attempts   int               `json:"attempts"`
	LastState  string            `json:"last_state,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Error      string            `json:"error,omitempty"`
	RawBody    []byte            `json:"-"`
	Content    *ExtractedContent `json:"content,omitempty"`
}

// OK reports whether the fetch produced usable content
func (r FetchResult) OK() bool {
	return r.Status == StatusSuccess
}
