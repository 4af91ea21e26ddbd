package handlers

import (
	"context"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/robots"
)

type mockRunner struct {
	runFunc func(ctx context.Context, reqs []domain.FetchRequest) []domain.FetchResult
	got     []domain.FetchRequest
}

func (m *mockRunner) Run(ctx context.Context, reqs []domain.FetchRequest) <-chan domain.FetchResult {
	m.got = reqs
	out := make(chan domain.FetchResult, len(reqs))
	var results []domain.FetchResult
	if m.runFunc != nil {
		results = m.runFunc(ctx, reqs)
	}
	for _, r := range results {
		out <- r
	}
	close(out)
	return out
}

type mockCollector struct {
	collectFunc func(ctx context.Context, query string, target int) ([]domain.FetchResult, error)
}

func (m *mockCollector) Collect(ctx context.Context, query string, target int) ([]domain.FetchResult, error) {
	if m.collectFunc != nil {
		return m.collectFunc(ctx, query, target)
	}
	return nil, nil
}

type mockRobots struct {
	checkFunc func(ctx context.Context, rawURL, userAgent string) (robots.Verdict, error)
}

func (m *mockRobots) Check(ctx context.Context, rawURL, userAgent string) (robots.Verdict, error) {
	return m.checkFunc(ctx, rawURL, userAgent)
}

type mockPolicies struct {
	policy domain.DomainPolicy
	asked  string
}

func (m *mockPolicies) Policy(rawURL string) domain.DomainPolicy {
	m.asked = rawURL
	return m.policy
}
