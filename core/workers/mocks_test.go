package workers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/utils/hostname"
)

// mockFetcher is a mock implementation of Fetcher that tracks per-domain concurrency
type mockFetcher struct {
	mu        sync.Mutex
	delay     time.Duration
	active    map[string]int
	maxActive map[string]int
	inFlight  int
	peak      int
	calls     int
}

func newMockFetcher(delay time.Duration) *mockFetcher {
	return &mockFetcher{delay: delay, active: map[string]int{}, maxActive: map[string]int{}}
}

func (m *mockFetcher) Fetch(ctx context.Context, req domain.FetchRequest) domain.FetchResult {
	dom, _ := hostname.FromURL(req.URL)

	m.mu.Lock()
	m.calls++
	m.active[dom]++
	if m.active[dom] > m.maxActive[dom] {
		m.maxActive[dom] = m.active[dom]
	}
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active[dom]--
		m.inFlight--
		m.mu.Unlock()
	}()

	res := domain.FetchResult{URL: req.URL, Domain: dom, Status: domain.StatusSuccess}
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		res.Status = domain.StatusError
		res.Reason = "Cancelled"
	}
	return res
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
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
}

func (f *netFetcher) Fetch(ctx context.Context, url string) (*domain.RawResponse, error) {
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
		FinalURL:    url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
