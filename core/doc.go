// Package core contains the fetch subsystem's business logic.
// It has no web framework dependencies and can be used without the HTTP API.
//
// The core package is organized into several sub-packages:
//
// - domain: Pure models (FetchRequest, FetchResult, DomainPolicy, ExtractedContent)
// - errors: Typed errors shared across layers
// - interfaces: Contracts for external dependencies (cache, HTTP, renderer, search, logger)
// - policy: Domain policy resolution and retry classification
// - ratelimit: Per-domain pacing on top of session state
// - robots: robots.txt fetching, caching and evaluation
// - session: Per-domain cookie jars and user agents
// - extract: HTML to structured content
// - fetch: The API, HTTP and headless escalation state machine and the search collector
// - workers: A bounded pool that runs domain batches concurrently
//
// # Design Principles
//
// - All external dependencies are injected via interfaces
// - Business logic is testable in isolation
// - Every fetch ends in exactly one FetchResult; failures are values, not panics
package core
