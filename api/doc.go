// Package api provides the HTTP surface of the content fetcher.
// It uses the Huma framework to provide automatic OpenAPI documentation,
// request/response validation, and a clean handler interface.
//
// # Architecture
//
// - server.go: Huma API configuration and route wiring
// - handlers/: fetch, collect, robots and policy handlers
// - dto/: request and response shapes plus mappers from domain types
// - middleware/: request logging and per-client rate limiting
//
// # Endpoints
//
//	POST /v1/fetch    fetch a batch of URLs, results in request order
//	POST /v1/collect  search a query and fetch until N pages succeed
//	GET  /v1/robots   robots.txt verdict for a URL
//	GET  /v1/policy   effective per-domain policy for a URL
//	GET  /health      liveness
//
// The OpenAPI document is served at /openapi.json and the interactive docs
// at /docs.
//
// # Validation
//
// Request bodies are validated from struct tags before handlers run:
//
//	type FetchRequest struct {
//	    URLs          []string `json:"urls" minItems:"1" maxItems:"100"`
//	    MinBodyLength int      `json:"min_body_length,omitempty" minimum:"0"`
//	}
//
// Per-URL failures never fail a request; they are reported in each result's
// status and reason. Only request validation and search provider errors
// produce non-2xx responses.
package api
