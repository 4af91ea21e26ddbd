// ABOUTME: Provider API strategy that builds a minimal document from search results
// ABOUTME: A URL the provider does not know yields an empty document, which reads as thin content

package fetch

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/interfaces"
)

// APIStrategy fetches a page's indexed title and snippet from a search provider
type APIStrategy struct {
	provider interfaces.SearchProvider
	count    int
}

// NewAPIStrategy wraps provider. count is the number of results searched for a match.
func NewAPIStrategy(provider interfaces.SearchProvider, count int) *APIStrategy {
	if count <= 0 {
		count = 5
	}
	return &APIStrategy{provider: provider, count: count}
}

// Fetch looks rawURL up and synthesizes an HTML document from the matching result
func (a *APIStrategy) Fetch(ctx context.Context, rawURL string) (*domain.RawResponse, error) {
	start := time.Now()

	results, err := a.provider.Search(ctx, rawURL, a.count)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", a.provider.Name(), err)
	}

	resp := &domain.RawResponse{
		URL:         rawURL,
		FinalURL:    rawURL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Latency:     time.Since(start),
	}

	match, ok := matchResult(rawURL, results)
	if !ok {
		resp.Body = []byte("<html><head></head><body></body></html>")
		return resp, nil
	}

	resp.FinalURL = match.URL
	resp.Body = synthesize(match)
	return resp, nil
}

func synthesize(r domain.SearchResult) []byte {
	title := html.EscapeString(r.Title)
	desc := html.EscapeString(r.Description)
	var b strings.Builder
	b.WriteString("<html><head>")
	fmt.Fprintf(&b, "<title>%s</title>", title)
	fmt.Fprintf(&b, `<meta property="og:title" content="%s">`, title)
	fmt.Fprintf(&b, `<meta property="og:description" content="%s">`, desc)
	fmt.Fprintf(&b, `<link rel="canonical" href="%s">`, html.EscapeString(r.URL))
	b.WriteString("</head><body><article>")
	fmt.Fprintf(&b, "<p>%s</p>", desc)
	b.WriteString("</article></body></html>")
	return []byte(b.String())
}

// matchResult finds the result pointing at the same page as target
func matchResult(target string, results []domain.SearchResult) (domain.SearchResult, bool) {
	want := pageKey(target)
	for _, r := range results {
		if pageKey(r.URL) == want {
			return r, true
		}
	}
	return domain.SearchResult{}, false
}

func pageKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host + strings.TrimSuffix(u.EscapedPath(), "/")
}
