// ABOUTME: Dependencies container provides dependency injection for core services
// ABOUTME: Defines the contract for dependencies required by the core business logic

package interfaces

// Dependencies holds all external dependencies required by the core business logic
type Dependencies struct {
	// Cache persists robots.txt bodies across runs when a shared backend is configured
	Cache Cache

	// HTTPClient serves provider API and robots.txt requests
	HTTPClient HTTPClient

	// Logger provides structured logging
	Logger Logger
}
