// ABOUTME: Request DTOs for the fetch and collect endpoints
// ABOUTME: Huma struct tags drive validation and the generated OpenAPI schema

package requests

import (
	"time"

	"content-fetch-api/core/domain"
)

// FetchRequest asks for content from a list of URLs
type FetchRequest struct {
	URLs []string `json:"urls" minItems:"1" maxItems:"100" doc:"Pages to fetch"`

	MinBodyLength int `json:"min_body_length,omitempty" minimum:"0" doc:"Thin content threshold override in characters"`

	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" minimum:"0" maximum:"300" doc:"Per-URL deadline; zero uses the run default"`
}

// ToFetchRequests expands the body into one domain request per URL
func (r FetchRequest) ToFetchRequests() []domain.FetchRequest {
	timeout := time.Duration(r.TimeoutSeconds * float64(time.Second))
	reqs := make([]domain.FetchRequest, 0, len(r.URLs))
	for _, u := range r.URLs {
		reqs = append(reqs, domain.FetchRequest{
			URL:           u,
			MinBodyLength: r.MinBodyLength,
			Timeout:       timeout,
		})
	}
	return reqs
}

// CollectRequest asks for a number of usable pages for a search query
type CollectRequest struct {
	Query string `json:"query" minLength:"1" maxLength:"500" doc:"Search query"`

	Count int `json:"count,omitempty" minimum:"1" maximum:"50" default:"10" doc:"Number of pages wanted"`
}
