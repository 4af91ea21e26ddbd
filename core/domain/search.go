// ABOUTME: Search domain models for provider API results
// ABOUTME: Defines the result shape shared by the Brave and Serper providers

package domain

// SearchResult is one organic hit returned by a provider search API
type SearchResult struct {
	// URL is the result's landing page
	URL string `json:"url"`

	// Title is the result title as indexed by the provider
	Title string `json:"title"`

	// Description is the provider's snippet for the page
	Description string `json:"description"`
}
