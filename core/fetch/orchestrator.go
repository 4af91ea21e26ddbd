// ABOUTME: Fetch orchestrator escalating API -> direct HTTP -> headless per URL
// ABOUTME: Applies robots, domain policy, politeness delays and adaptive retries; always returns a result

package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content-fetch-api/core/domain"
	coreerrors "content-fetch-api/core/errors"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/utils/hostname"
)

// Orchestrator turns FetchRequests into FetchResults. It holds no mutable
// state of its own and is safe for concurrent use.
type Orchestrator struct {
	opts  Options
	c     Components
	api   interfaces.PageFetcher
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator. Resolver, Retry, Limiter, Robots, HTTP and
// Extractor are required.
func New(c Components, opts Options) (*Orchestrator, error) {
	switch {
	case c.Resolver == nil:
		return nil, &coreerrors.ConfigError{Setting: "resolver", Message: "domain policy resolver is required"}
	case c.Retry == nil:
		return nil, &coreerrors.ConfigError{Setting: "retry", Message: "retry policy is required"}
	case c.Limiter == nil:
		return nil, &coreerrors.ConfigError{Setting: "limiter", Message: "rate limiter is required"}
	case c.Robots == nil:
		return nil, &coreerrors.ConfigError{Setting: "robots", Message: "robots cache is required"}
	case c.HTTP == nil:
		return nil, &coreerrors.ConfigError{Setting: "http", Message: "page fetcher is required"}
	case c.Extractor == nil:
		return nil, &coreerrors.ConfigError{Setting: "extractor", Message: "content extractor is required"}
	}
	if opts.MinBodyLength < 0 {
		return nil, &coreerrors.ConfigError{Setting: "min_body_length", Message: "cannot be negative"}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}

	o := &Orchestrator{opts: opts, c: c, sleep: sleepContext}
	if c.Search != nil {
		o.api = NewAPIStrategy(c.Search, opts.APIResultCount)
	}
	return o, nil
}

// Options returns the run configuration
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Policy returns the effective policy for rawURL
func (o *Orchestrator) Policy(rawURL string) domain.DomainPolicy {
	p := o.c.Resolver.Resolve(rawURL)
	p.AllowHeadless = p.AllowHeadless || o.opts.AllowHeadless
	return p
}

// attempt is the outcome of running one TRY state to completion
type attempt struct {
	resp    *domain.RawResponse
	content *domain.ExtractedContent
	kind    coreerrors.Kind
	err     error
	tries   int
}

func (a attempt) ok() bool { return a.err == nil && a.kind == coreerrors.KindUnknown }

// fetchRun carries the per-request values shared by every state
type fetchRun struct {
	url     string
	domain  string
	policy  domain.DomainPolicy
	minBody int
	start   time.Time
}

// Fetch runs the escalation machine for one request. It never panics and
// never returns a partially filled result.
func (o *Orchestrator) Fetch(ctx context.Context, req domain.FetchRequest) (result domain.FetchResult) {
	run := fetchRun{url: req.URL, start: time.Now()}
	result = domain.FetchResult{URL: req.URL, Status: domain.StatusError, Strategy: domain.StrategyNone}

	defer func() {
		if r := recover(); r != nil {
			result.Status = domain.StatusError
			result.Reason = coreerrors.KindUnknown.String()
			result.Error = fmt.Sprintf("panic: %v", r)
			o.logFailure(run, result)
		}
		result.Latency = time.Since(run.start)
	}()

	u, err := hostname.Parse(req.URL)
	if err != nil {
		result.Reason = "InvalidURL"
		result.Error = err.Error()
		o.logFailure(run, result)
		return result
	}
	run.domain = hostname.Registrable(u.Host)
	run.policy = o.Policy(req.URL)
	result.Domain = run.domain

	run.minBody = o.opts.MinBodyLength
	if req.MinBodyLength > 0 {
		run.minBody = req.MinBodyLength
	}

	if deadline, ok := req.EffectiveDeadline(run.start); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	m := newMachine(o.api != nil, run.policy.AllowHeadless && o.c.Renderer != nil)
	var thin *attempt

	for !m.state.Terminal() {
		state := m.state

		if state != StateTryAPI && !o.c.Robots.IsAllowed(ctx, req.URL, o.opts.UserAgent) {
			m.fail()
			result.Status = domain.StatusBlocked
			result.Reason = coreerrors.KindRobotsDisallowed.String()
			result.Error = "disallowed by robots.txt"
			break
		}

		a := o.runState(ctx, run, state)
		result.Attempts += a.tries
		result.Strategy = state.Strategy()
		if a.resp != nil {
			result.HTTPStatus = a.resp.StatusCode
			result.FinalURL = a.resp.FinalURL
		}

		switch {
		case a.ok():
			m.finish()
			o.fill(&result, a, domain.StatusSuccess)

		case a.kind == coreerrors.KindThinContent:
			thin = &a
			if m.canEscalate() {
				o.logEscalation(run, state, a.kind)
				m.escalate()
				continue
			}
			m.finish()
			o.fill(&result, a, domain.StatusThinContent)
			result.Reason = a.kind.String()

		case a.kind == coreerrors.KindTimeout || a.kind == coreerrors.KindCancelled:
			m.fail()
			result.Status = domain.StatusTimeout
			if a.kind == coreerrors.KindCancelled {
				result.Status = domain.StatusError
			}
			result.Reason = a.kind.String()
			result.Error = errString(a.err)
			if thin != nil {
				result.Content = thin.content
			}

		default:
			// Retry budget spent or outcome not retryable
			escalate := m.canEscalate()
			if state == StateTryAPI && !o.opts.AllowHTMLFallback {
				escalate = false
			}
			if escalate {
				o.logEscalation(run, state, a.kind)
				m.escalate()
				continue
			}
			m.fail()
			result.Status = statusFor(a.kind)
			result.Reason = a.kind.String()
			result.Error = errString(a.err)
			if thin != nil {
				result.Content = thin.content
			}
		}
	}

	result.LastState = m.last.String()
	if m.state == StateFailed || result.Status != domain.StatusSuccess {
		o.logFailure(run, result)
	} else if o.c.Logger != nil {
		o.c.Logger.Debug("Fetch succeeded", map[string]interface{}{
			"url":      run.url,
			"domain":   run.domain,
			"strategy": result.Strategy.String(),
			"attempts": result.Attempts,
		})
	}
	return result
}

// runState runs one strategy with same-state retries
func (o *Orchestrator) runState(ctx context.Context, run fetchRun, state State) attempt {
	fetcher := o.fetcherFor(state)
	var last attempt

	for try := 1; ; try++ {
		if err := ctx.Err(); err != nil {
			return ctxAttempt(err, try-1)
		}

		release := func() {}
		if state != StateTryAPI {
			var crawlDelay time.Duration
			if o.opts.RespectCrawlDelay {
				crawlDelay = o.c.Robots.CrawlDelay(ctx, run.url, o.opts.UserAgent)
			}
			floor := o.opts.RequestIntervalFloor
			if crawlDelay > floor {
				floor = crawlDelay
			}
			held, err := o.c.Limiter.WaitTurn(ctx, run.domain, o.c.Limiter.Effective(run.policy, floor))
			if err != nil {
				return ctxAttempt(err, try-1)
			}
			release = held
		}

		// The domain stays locked for the whole attempt, backoff sleeps run unlocked
		last = o.try(ctx, run, state, fetcher)
		release()
		last.tries = try
		if last.ok() || last.kind == coreerrors.KindThinContent ||
			last.kind == coreerrors.KindTimeout || last.kind == coreerrors.KindCancelled {
			return last
		}

		delay, retry := o.c.Retry.NextDelay(try, last.kind, run.policy.MaxRetries)
		if !retry {
			return last
		}
		if o.c.Logger != nil {
			o.c.Logger.Debug("Retrying fetch", map[string]interface{}{
				"url":      run.url,
				"domain":   run.domain,
				"strategy": state.Strategy().String(),
				"attempt":  try,
				"reason":   last.kind.String(),
				"delay":    delay.String(),
			})
		}
		if err := o.sleep(ctx, delay); err != nil {
			a := ctxAttempt(err, try)
			a.resp = last.resp
			return a
		}
	}
}

// try performs a single request and classifies it
func (o *Orchestrator) try(ctx context.Context, run fetchRun, state State, fetcher interfaces.PageFetcher) attempt {
	attemptCtx := ctx
	// The renderer enforces its own hard timeout
	if run.policy.Timeout > 0 && state != StateTryHeadless {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, run.policy.Timeout)
		defer cancel()
	}

	strategy := state.Strategy().String()
	resp, err := fetcher.Fetch(attemptCtx, run.url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxAttempt(ctxErr, 0)
		}
		kind := coreerrors.Classify(err)
		if kind == coreerrors.KindTimeout || kind == coreerrors.KindCancelled {
			// The per-attempt timeout fired while the request itself is still live
			kind = coreerrors.KindTransportError
		}
		return attempt{kind: kind, err: coreerrors.NewFetchError(kind, strategy, run.url, 0, err)}
	}

	if !resp.IsSuccess() {
		kind := coreerrors.ClassifyStatus(resp.StatusCode)
		o.dump(run.url, fmt.Sprintf("status_%d", resp.StatusCode), resp.Body)
		return attempt{
			resp: resp,
			kind: kind,
			err:  coreerrors.NewFetchError(kind, strategy, run.url, resp.StatusCode, nil),
		}
	}

	base := resp.FinalURL
	if base == "" {
		base = run.url
	}
	content := o.c.Extractor.ExtractWithContentType(resp.Body, resp.ContentType, base)
	if content.ParseFailed {
		o.dump(run.url, "exception", resp.Body)
	}

	if content.BodyLength() < run.minBody {
		o.dump(run.url, "thin", resp.Body)
		return attempt{
			resp:    resp,
			content: content,
			kind:    coreerrors.KindThinContent,
			err: coreerrors.NewFetchError(coreerrors.KindThinContent, strategy, run.url, resp.StatusCode,
				fmt.Errorf("body %d chars, want %d", content.BodyLength(), run.minBody)),
		}
	}
	return attempt{resp: resp, content: content}
}

func (o *Orchestrator) fetcherFor(state State) interfaces.PageFetcher {
	switch state {
	case StateTryAPI:
		return o.api
	case StateTryHeadless:
		return o.c.Renderer
	}
	return o.c.HTTP
}

func (o *Orchestrator) fill(result *domain.FetchResult, a attempt, status domain.Status) {
	result.Status = status
	result.Content = a.content
	if a.resp != nil {
		result.RawBody = a.resp.Body
	}
}

func (o *Orchestrator) dump(url, suffix string, body []byte) {
	if o.c.Dump == nil {
		return
	}
	if err := o.c.Dump.Dump(url, suffix, body); err != nil && o.c.Logger != nil {
		o.c.Logger.Debug("Failed to write debug dump", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}
}

func (o *Orchestrator) logEscalation(run fetchRun, from State, kind coreerrors.Kind) {
	if o.c.Logger == nil {
		return
	}
	o.c.Logger.Info("Escalating fetch strategy", map[string]interface{}{
		"url":    run.url,
		"domain": run.domain,
		"from":   from.String(),
		"reason": kind.String(),
	})
}

func (o *Orchestrator) logFailure(run fetchRun, result domain.FetchResult) {
	if o.c.Logger == nil {
		return
	}
	o.c.Logger.Warn("Fetch failed", map[string]interface{}{
		"url":        run.url,
		"domain":     run.domain,
		"strategy":   result.Strategy.String(),
		"attempts":   result.Attempts,
		"reason":     result.Reason,
		"status":     result.Status.String(),
		"last_state": result.LastState,
		"error":      result.Error,
	})
}

// statusFor maps a terminal failure kind to a result status
func statusFor(kind coreerrors.Kind) domain.Status {
	switch kind {
	case coreerrors.KindRobotsDisallowed, coreerrors.KindBotDetected:
		return domain.StatusBlocked
	case coreerrors.KindTimeout:
		return domain.StatusTimeout
	}
	return domain.StatusError
}

func ctxAttempt(err error, tries int) attempt {
	kind := coreerrors.KindCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = coreerrors.KindTimeout
	}
	return attempt{kind: kind, err: err, tries: tries}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
