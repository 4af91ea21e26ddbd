package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/extract"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/core/policy"
	"content-fetch-api/core/ratelimit"
	"content-fetch-api/core/session"
)

// mockFetcher is a mock implementation of the PageFetcher interface
type mockFetcher struct {
	mu        sync.Mutex
	calls     int
	fetchFunc func(ctx context.Context, call int, url string) (*domain.RawResponse, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*domain.RawResponse, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, call, url)
	}
	return nil, errors.New("no fetchFunc")
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRenderer is a mock implementation of the Renderer interface
type mockRenderer struct {
	mockFetcher
}

func (m *mockRenderer) Close() error { return nil }

// mockSearch is a mock implementation of the SearchProvider interface
type mockSearch struct {
	mu         sync.Mutex
	calls      int
	lastCount  int
	searchFunc func(ctx context.Context, query string, count int) ([]domain.SearchResult, error)
}

func (m *mockSearch) Name() string { return "mock" }

func (m *mockSearch) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastCount = count
	m.mu.Unlock()
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, count)
	}
	return nil, nil
}

func (m *mockSearch) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRobots is a mock implementation of RobotsChecker
type mockRobots struct {
	disallow   map[string]bool
	crawlDelay time.Duration
}

func (m *mockRobots) IsAllowed(ctx context.Context, rawURL, userAgent string) bool {
	return !m.disallow[rawURL]
}

func (m *mockRobots) CrawlDelay(ctx context.Context, rawURL, userAgent string) time.Duration {
	return m.crawlDelay
}

// mockDump is a mock implementation of the DumpStorage interface
type mockDump struct {
	mu       sync.Mutex
	suffixes []string
}

func (m *mockDump) Dump(url, suffix string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suffixes = append(m.suffixes, suffix)
	return nil
}

func (m *mockDump) has(suffix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.suffixes {
		if s == suffix {
			return true
		}
	}
	return false
}

// mockLogger is a mock implementation of the Logger interface
type mockLogger struct {
	mu    sync.Mutex
	warns []map[string]interface{}
}

func (m *mockLogger) Debug(msg string, fields map[string]interface{}) {}
func (m *mockLogger) Info(msg string, fields map[string]interface{})  {}
func (m *mockLogger) Error(msg string, fields map[string]interface{}) {}

func (m *mockLogger) Warn(msg string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, fields)
}

func (m *mockLogger) lastWarn() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.warns) == 0 {
		return nil
	}
	return m.warns[len(m.warns)-1]
}

// netClient adapts http.Client to the HTTPClient interface for httptest servers
type netClient struct {
	client *http.Client
}

func (c *netClient) Get(ctx context.Context, url string, headers map[string]string) (interfaces.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	return &netResponse{resp: resp}, nil
}

func (c *netClient) Post(ctx context.Context, url string, body io.Reader, headers map[string]string) (interfaces.Response, error) {
	return nil, errors.New("not implemented")
}

type netResponse struct {
	resp *http.Response
}

func (r *netResponse) StatusCode() int          { return r.resp.StatusCode }
func (r *netResponse) Body() io.ReadCloser      { return r.resp.Body }
func (r *netResponse) Header(key string) string { return r.resp.Header.Get(key) }

// netFetcher is a minimal PageFetcher over http.Client
type netFetcher struct {
	client *http.Client
	mu     sync.Mutex
	calls  int
}

func (f *netFetcher) Fetch(ctx context.Context, url string) (*domain.RawResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &domain.RawResponse{
		URL:         url,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// richPage returns a document whose article body is well over the thin threshold
func richPage(title string) []byte {
	para := strings.Repeat("This paragraph carries enough readable text to count as content. ", 5)
	return []byte("<html><head><title>" + title + "</title></head><body><article><p>" +
		para + "</p><p>" + para + "</p></article></body></html>")
}

// thinPage returns a document with a few words of body
func thinPage() []byte {
	return []byte("<html><head><title>Loading</title></head><body><article><p>Please enable JavaScript.</p></article></body></html>")
}

func okResponse(url string, body []byte) *domain.RawResponse {
	return &domain.RawResponse{URL: url, FinalURL: url, StatusCode: 200, ContentType: "text/html; charset=utf-8", Body: body}
}

func statusResponse(url string, code int) *domain.RawResponse {
	return &domain.RawResponse{URL: url, FinalURL: url, StatusCode: code, ContentType: "text/html", Body: []byte("<html><body>denied</body></html>")}
}

// testPolicy is a fast policy: no spacing, generous timeout, two retries
func testPolicy() domain.DomainPolicy {
	return domain.DomainPolicy{Timeout: 2 * time.Second, MaxRetries: 2, Source: domain.PolicySourceDefault}
}

// testComponents wires real policy, limiter and extractor around the given fetchers
func testComponents(def domain.DomainPolicy, table map[string]domain.DomainPolicy) Components {
	return Components{
		Resolver:  policy.NewResolver(def, table, false),
		Retry:     policy.NewRetryPolicy(policy.RetryConfig{Base: time.Millisecond, Cap: 10 * time.Millisecond}),
		Limiter:   ratelimit.New(session.NewRegistry(session.Config{}, nil), ratelimit.WithRandomize(false)),
		Robots:    &mockRobots{},
		Extractor: extract.New(extract.WithMarkdown(false)),
	}
}

// newTestOrchestrator builds an orchestrator whose retry sleeps are recorded, not slept
func newTestOrchestrator(t *testing.T, c Components, opts Options) (*Orchestrator, *[]time.Duration) {
	t.Helper()
	o, err := New(c, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var mu sync.Mutex
	sleeps := []time.Duration{}
	o.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
		return ctx.Err()
	}
	return o, &sleeps
}
