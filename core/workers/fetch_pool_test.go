package workers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/extract"
	"content-fetch-api/core/fetch"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/core/policy"
	"content-fetch-api/core/ratelimit"
	"content-fetch-api/core/robots"
	"content-fetch-api/core/session"
)

func collect(ch <-chan domain.FetchResult) []domain.FetchResult {
	var out []domain.FetchResult
	for res := range ch {
		out = append(out, res)
	}
	return out
}

func startPool(t *testing.T, f Fetcher, cfg PoolConfig) *FetchPool {
	t.Helper()
	p := NewFetchPool(f, cfg, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { p.Stop() })
	return p
}

func TestNewFetchPool_Defaults(t *testing.T) {
	if got := NewFetchPool(nil, PoolConfig{}, nil).Workers(); got != 6 {
		t.Errorf("default workers = %d, want 6", got)
	}
	if got := NewFetchPool(nil, PoolConfig{MaxWorkers: 100}, nil).Workers(); got != MaxWorkersLimit {
		t.Errorf("workers = %d, want clamp to %d", got, MaxWorkersLimit)
	}
}

func TestRun_OneResultPerRequest(t *testing.T) {
	f := newMockFetcher(time.Millisecond)
	p := startPool(t, f, PoolConfig{MaxWorkers: 4})

	var reqs []domain.FetchRequest
	for i := 0; i < 25; i++ {
		reqs = append(reqs, domain.FetchRequest{URL: fmt.Sprintf("https://d%d.example%d.com/p%d", i, i%5, i)})
	}
	reqs = append(reqs, domain.FetchRequest{URL: "::not a url"})

	results := collect(p.Run(context.Background(), reqs))

	if len(results) != len(reqs) {
		t.Fatalf("got %d results for %d requests", len(results), len(reqs))
	}
	seen := map[string]int{}
	for _, res := range results {
		seen[res.URL]++
	}
	for _, req := range reqs {
		if seen[req.URL] != 1 {
			t.Errorf("%s answered %d times", req.URL, seen[req.URL])
		}
	}
}

func TestRun_SerialPerDomainParallelAcrossDomains(t *testing.T) {
	f := newMockFetcher(20 * time.Millisecond)
	p := startPool(t, f, PoolConfig{MaxWorkers: 6})

	var reqs []domain.FetchRequest
	for _, dom := range []string{"a.com", "b.com", "c.org"} {
		for i := 0; i < 4; i++ {
			reqs = append(reqs, domain.FetchRequest{URL: fmt.Sprintf("https://www.%s/page/%d", dom, i)})
		}
	}

	start := time.Now()
	results := collect(p.Run(context.Background(), reqs))
	elapsed := time.Since(start)

	if len(results) != 12 {
		t.Fatalf("got %d results", len(results))
	}
	for dom, n := range f.maxActive {
		if n != 1 {
			t.Errorf("%s had %d concurrent fetches, want 1", dom, n)
		}
	}
	if f.peak < 2 {
		t.Errorf("peak concurrency = %d, domains did not run in parallel", f.peak)
	}
	// Fully serial would take 12 x 20ms
	if elapsed > 200*time.Millisecond {
		t.Errorf("batch took %v", elapsed)
	}
}

func TestRun_CancellationStillAnswersEveryRequest(t *testing.T) {
	f := newMockFetcher(time.Second)
	p := startPool(t, f, PoolConfig{MaxWorkers: 1})

	var reqs []domain.FetchRequest
	for i := 0; i < 5; i++ {
		reqs = append(reqs, domain.FetchRequest{URL: fmt.Sprintf("https://site%d.com/", i)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	start := time.Now()
	results := collect(p.Run(ctx, reqs))

	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation not prompt: %v", elapsed)
	}
	for _, res := range results {
		if res.Status != domain.StatusError || res.Reason != "Cancelled" {
			t.Errorf("%s: Status/Reason = %v/%s", res.URL, res.Status, res.Reason)
		}
	}
}

func TestRun_PoolNotRunning(t *testing.T) {
	p := NewFetchPool(newMockFetcher(0), PoolConfig{}, nil)

	results := collect(p.Run(context.Background(), []domain.FetchRequest{{URL: "https://a.com/"}, {URL: "https://b.com/"}}))

	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	for _, res := range results {
		if res.Reason != "Cancelled" || !strings.Contains(res.Error, "not running") {
			t.Errorf("Reason/Error = %s/%s", res.Reason, res.Error)
		}
	}
}

func TestSubmit_Lifecycle(t *testing.T) {
	f := newMockFetcher(200 * time.Millisecond)
	p := NewFetchPool(f, PoolConfig{MaxWorkers: 1, QueueSize: 1, SubmitTimeout: 20 * time.Millisecond}, nil)

	results := make(chan domain.FetchResult, 3)
	job := func(u string) *Job {
		return &Job{Context: context.Background(), Domain: u, Requests: []domain.FetchRequest{{URL: u}}, Results: results}
	}

	if err := p.Submit(job("https://a.com/")); err != ErrPoolNotRunning {
		t.Errorf("Submit before Start = %v", err)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Submit(job("https://a.com/")); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	// Give the single worker time to pick up the first job
	time.Sleep(20 * time.Millisecond)
	if err := p.Submit(job("https://b.com/")); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if err := p.Submit(job("https://c.com/")); err != ErrQueueFull {
		t.Errorf("third Submit = %v, want ErrQueueFull", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// In-flight and queued jobs are both answered
	if len(results) != 2 {
		t.Errorf("got %d results after Stop, want 2", len(results))
	}
	if err := p.Submit(job("https://d.com/")); err != ErrPoolNotRunning {
		t.Errorf("Submit after Stop = %v", err)
	}
}

func TestRun_MixedBatchOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case r.URL.Path == "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(3 * time.Second):
			}
		default:
			para := strings.Repeat("Readable article text for the batch test page. ", 10)
			fmt.Fprintf(w, "<html><head><title>%s</title></head><body><article><p>%s</p></article></body></html>", r.URL.Path, para)
		}
	}))
	defer srv.Close()

	def := domain.DomainPolicy{MinDelay: 5 * time.Millisecond, MaxDelay: 5 * time.Millisecond, Timeout: 2 * time.Second, MaxRetries: 1}
	orch, err := fetch.New(fetch.Components{
		Resolver:  policy.NewResolver(def, nil, false),
		Retry:     policy.NewRetryPolicy(policy.RetryConfig{Base: time.Millisecond, Cap: 5 * time.Millisecond}),
		Limiter:   ratelimit.New(session.NewRegistry(session.Config{}, nil), ratelimit.WithRandomize(false)),
		Robots:    robots.New(robots.Config{}, interfaces.Dependencies{HTTPClient: &netClient{client: srv.Client()}}),
		HTTP:      &netFetcher{client: srv.Client()},
		Extractor: extract.New(),
	}, fetch.DefaultOptions())
	if err != nil {
		t.Fatalf("fetch.New: %v", err)
	}
	p := startPool(t, orch, DefaultPoolConfig())

	paths := []string{"/a", "/b", "/private/1", "/c", "/d", "/slow", "/e", "/private/2", "/f", "/g"}
	reqs := make([]domain.FetchRequest, len(paths))
	for i, path := range paths {
		reqs[i] = domain.FetchRequest{URL: srv.URL + path, Timeout: 300 * time.Millisecond}
	}

	results := collect(p.Run(context.Background(), reqs))

	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	counts := map[domain.Status]int{}
	for _, res := range results {
		counts[res.Status]++
		if res.Status == domain.StatusBlocked && res.Reason != "RobotsDisallowed" {
			t.Errorf("%s blocked for %s", res.URL, res.Reason)
		}
	}
	if counts[domain.StatusSuccess] != 7 || counts[domain.StatusBlocked] != 2 || counts[domain.StatusTimeout] != 1 {
		t.Errorf("outcomes = %v, want 7 success, 2 blocked, 1 timeout", counts)
	}
}
