// ABOUTME: Converts domain fetch results, verdicts and policies to response DTOs
// ABOUTME: Restores request order for batch results

package mappers

import (
	"content-fetch-api/api/dto/responses"
	"content-fetch-api/core/domain"
	"content-fetch-api/core/robots"
)

// ToFetchResult maps one domain result
func ToFetchResult(r domain.FetchResult) responses.FetchResult {
	return responses.FetchResult{
		URL:        r.URL,
		FinalURL:   r.FinalURL,
		Domain:     r.Domain,
		Status:     r.Status.String(),
		Strategy:   r.Strategy.String(),
		HTTPStatus: r.HTTPStatus,
		LatencyMs:  r.Latency.Milliseconds(),
		Attempts:   r.Attempts,
		LastState:  r.LastState,
		Reason:     r.Reason,
		Error:      r.Error,
		Content:    r.Content,
	}
}

// ToFetchResults maps results in the order given
func ToFetchResults(results []domain.FetchResult) []responses.FetchResult {
	out := make([]responses.FetchResult, 0, len(results))
	for _, r := range results {
		out = append(out, ToFetchResult(r))
	}
	return out
}

// InRequestOrder lines results up with the URLs that produced them. Repeated
// URLs are matched in arrival order.
func InRequestOrder(urls []string, results []domain.FetchResult) []domain.FetchResult {
	byURL := make(map[string][]domain.FetchResult, len(results))
	for _, r := range results {
		byURL[r.URL] = append(byURL[r.URL], r)
	}

	ordered := make([]domain.FetchResult, 0, len(urls))
	for _, u := range urls {
		queue := byURL[u]
		if len(queue) == 0 {
			ordered = append(ordered, domain.FetchResult{
				URL:      u,
				Status:   domain.StatusError,
				Strategy: domain.StrategyNone,
				Reason:   "Missing",
				Error:    "no result produced",
			})
			continue
		}
		ordered = append(ordered, queue[0])
		byURL[u] = queue[1:]
	}
	return ordered
}

// Summarize counts results by status
func Summarize(results []domain.FetchResult) responses.Summary {
	s := responses.Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case domain.StatusSuccess:
			s.Success++
		case domain.StatusThinContent:
			s.ThinContent++
		case domain.StatusBlocked:
			s.Blocked++
		case domain.StatusTimeout:
			s.Timeout++
		default:
			s.Error++
		}
	}
	return s
}

// ToRobotsResponse maps a robots verdict
func ToRobotsResponse(v robots.Verdict) responses.RobotsResponse {
	return responses.RobotsResponse{
		URL:           v.URL,
		Origin:        v.Origin,
		Agent:         v.Agent,
		Allowed:       v.Allowed,
		AssumeAllowed: v.AssumeAllowed,
		CrawlDelaySec: v.CrawlDelay.Seconds(),
	}
}

// ToPolicyResponse maps an effective domain policy
func ToPolicyResponse(p domain.DomainPolicy) responses.PolicyResponse {
	return responses.PolicyResponse{
		Domain:        p.Domain,
		Source:        string(p.Source),
		AllowHeadless: p.AllowHeadless,
		MinDelayMs:    p.MinDelay.Milliseconds(),
		MaxDelayMs:    p.MaxDelay.Milliseconds(),
		TimeoutSec:    p.Timeout.Seconds(),
		MaxRetries:    p.MaxRetries,
	}
}
