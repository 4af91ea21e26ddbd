package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"content-fetch-api/core/domain"
	coreerrors "content-fetch-api/core/errors"
)

// mockRunner is a mock implementation of BatchRunner that resolves requests in order
type mockRunner struct {
	mu        sync.Mutex
	requested []string
	result    func(ctx context.Context, req domain.FetchRequest) domain.FetchResult
}

func (m *mockRunner) Run(ctx context.Context, reqs []domain.FetchRequest) <-chan domain.FetchResult {
	out := make(chan domain.FetchResult)
	go func() {
		defer close(out)
		for _, req := range reqs {
			m.mu.Lock()
			m.requested = append(m.requested, req.URL)
			m.mu.Unlock()
			out <- m.result(ctx, req)
		}
	}()
	return out
}

func searchHits(n int) []domain.SearchResult {
	hits := make([]domain.SearchResult, n)
	for i := range hits {
		hits[i] = domain.SearchResult{URL: fmt.Sprintf("https://site%d.example.com/", i)}
	}
	return hits
}

func TestCandidatePool(t *testing.T) {
	tests := []struct{ target, want int }{
		{1, 30}, {10, 30}, {11, 33}, {50, 150},
	}
	for _, tt := range tests {
		if got := CandidatePool(tt.target); got != tt.want {
			t.Errorf("CandidatePool(%d) = %d, want %d", tt.target, got, tt.want)
		}
	}
}

func TestCollect_SkipsDisallowedAndStopsAtTarget(t *testing.T) {
	search := &mockSearch{searchFunc: func(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
		hits := searchHits(8)
		return append(hits, hits[0]), nil
	}}
	robots := &mockRobots{disallow: map[string]bool{"https://site1.example.com/": true}}
	runner := &mockRunner{result: func(ctx context.Context, req domain.FetchRequest) domain.FetchResult {
		status := domain.StatusSuccess
		if req.URL == "https://site2.example.com/" {
			status = domain.StatusThinContent
		}
		if ctx.Err() != nil {
			status = domain.StatusError
		}
		return domain.FetchResult{URL: req.URL, Status: status}
	}}
	c := NewCollector(search, robots, runner, DefaultOptions().UserAgent, nil)

	got, err := c.Collect(context.Background(), "terms of service", 3)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if search.lastCount != 30 {
		t.Errorf("searched for %d results, want 30", search.lastCount)
	}
	want := []string{"https://site0.example.com/", "https://site3.example.com/", "https://site4.example.com/"}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, res := range got {
		if res.URL != want[i] {
			t.Errorf("result %d = %s, want %s", i, res.URL, want[i])
		}
	}
	for _, u := range runner.requested {
		if u == "https://site1.example.com/" {
			t.Error("robots-disallowed result was fetched")
		}
	}
	if len(runner.requested) != 7 {
		t.Errorf("requested %d URLs, want 7 unique allowed", len(runner.requested))
	}
}

func TestCollect_ReturnsFewerWhenPoolRunsDry(t *testing.T) {
	search := &mockSearch{searchFunc: func(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
		return searchHits(2), nil
	}}
	runner := &mockRunner{result: func(ctx context.Context, req domain.FetchRequest) domain.FetchResult {
		return domain.FetchResult{URL: req.URL, Status: domain.StatusSuccess}
	}}
	c := NewCollector(search, nil, runner, "", nil)

	got, err := c.Collect(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d results, want 2", len(got))
	}
}

func TestCollect_Errors(t *testing.T) {
	runner := &mockRunner{}
	search := &mockSearch{searchFunc: func(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
		return nil, errors.New("quota exhausted")
	}}

	if _, err := NewCollector(search, nil, runner, "", nil).Collect(context.Background(), "", 1); !coreerrors.IsValidation(err) {
		t.Errorf("empty query: err = %v", err)
	}
	if _, err := NewCollector(search, nil, runner, "", nil).Collect(context.Background(), "q", 0); !coreerrors.IsValidation(err) {
		t.Errorf("zero count: err = %v", err)
	}
	if _, err := NewCollector(nil, nil, runner, "", nil).Collect(context.Background(), "q", 1); !coreerrors.IsConfig(err) {
		t.Errorf("no provider: err = %v", err)
	}
	if _, err := NewCollector(search, nil, runner, "", nil).Collect(context.Background(), "q", 1); err == nil {
		t.Error("search failure should be returned")
	}
}
