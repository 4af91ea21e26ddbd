// ABOUTME: Builds the fetch subsystem from configuration
// ABOUTME: Every component is created once here and released in reverse order by close

package main

import (
	"context"

	"github.com/cockroachdb/errors"

	"content-fetch-api/core/domain"
	coreerrors "content-fetch-api/core/errors"
	"content-fetch-api/core/extract"
	"content-fetch-api/core/fetch"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/core/policy"
	"content-fetch-api/core/ratelimit"
	"content-fetch-api/core/robots"
	"content-fetch-api/core/session"
	"content-fetch-api/core/workers"
	"content-fetch-api/infrastructure/cache"
	"content-fetch-api/infrastructure/dump"
	"content-fetch-api/infrastructure/http/standard"
	"content-fetch-api/infrastructure/render"
	"content-fetch-api/infrastructure/render/chromedp"
	"content-fetch-api/infrastructure/render/rod"
	"content-fetch-api/infrastructure/search"
	"content-fetch-api/infrastructure/search/brave"
	"content-fetch-api/infrastructure/search/serper"
	"content-fetch-api/pkg/config"
)

// app holds the wired subsystem
type app struct {
	cfg          *config.Config
	logger       interfaces.Logger
	orchestrator *fetch.Orchestrator
	pool         *workers.FetchPool
	robots       *robots.Cache
	collector    *fetch.Collector

	closers []func() error
}

// newApp wires every component. Configuration problems are returned before
// any fetch can start.
func newApp(cfg *config.Config, logger interfaces.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	table, err := config.LoadDomainTable(cfg.Fetch.DomainPolicyFile)
	if err != nil {
		return nil, &coreerrors.ConfigError{Setting: "AR_DOMAIN_POLICY_FILE", Message: "invalid domain policy table", Err: err}
	}
	def, domains := table.Policies()
	resolver := policy.NewResolver(def, domains, cfg.Fetch.AllowHeadless)

	store, closeStore, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return nil, &coreerrors.ConfigError{Setting: "CACHE_TYPE", Message: "cache unavailable", Err: err}
	}
	a.closers = append(a.closers, closeStore)

	apiClient := standard.NewStandardHTTPClient(cfg.Search.Timeout, standard.WithUserAgent(cfg.Fetch.UserAgent))
	robotsClient := standard.NewStandardHTTPClient(cfg.Fetch.RobotsTimeout,
		standard.WithMaxRetries(1),
		standard.WithUserAgent(cfg.Fetch.UserAgent),
	)

	a.robots = robots.New(robots.Config{
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     cfg.Fetch.RobotsTimeout,
		TTL:         cfg.Fetch.RobotsTTL,
		NegativeTTL: cfg.Fetch.RobotsNegativeTTL,
	}, interfaces.Dependencies{Cache: store, HTTPClient: robotsClient, Logger: logger})

	sessions := session.NewRegistry(session.Config{TTL: cfg.Fetch.SessionTTL}, logger)
	a.closers = append(a.closers, func() error { sessions.Close(); return nil })

	limiter := ratelimit.New(sessions,
		ratelimit.WithFloor(cfg.Fetch.RequestIntervalFloor),
		ratelimit.WithRandomize(cfg.Fetch.RandomizeDelays),
	)

	renderer, err := newRenderer(cfg.Fetch, table, logger)
	if err != nil {
		return nil, err
	}
	if renderer != nil {
		a.closers = append(a.closers, renderer.Close)
	}

	provider, err := newSearchProvider(cfg.Search, interfaces.Dependencies{HTTPClient: apiClient, Logger: logger})
	if err != nil {
		return nil, err
	}

	var dumps interfaces.DumpStorage
	if cfg.Fetch.DebugDir != "" {
		d, err := dump.NewDir(cfg.Fetch.DebugDir)
		if err != nil {
			return nil, &coreerrors.ConfigError{Setting: "AR_FETCH_DEBUG_DIR", Message: "cannot create dump directory", Err: err}
		}
		dumps = d
	}

	components := fetch.Components{
		Resolver: resolver,
		Retry: policy.NewRetryPolicy(policy.RetryConfig{
			Base:        cfg.Fetch.Backoff.Base,
			Cap:         cfg.Fetch.Backoff.Cap,
			BotDetected: cfg.Fetch.Backoff.BotDetected,
			RateLimited: cfg.Fetch.Backoff.RateLimited,
			ServerError: cfg.Fetch.Backoff.ServerError,
			Other:       cfg.Fetch.Backoff.Other,
		}),
		Limiter:   limiter,
		Robots:    a.robots,
		HTTP:      standard.NewPageFetcher(sessions, standard.PageFetcherOptions{UserAgent: cfg.Fetch.UserAgent}),
		Extractor: extract.New(extract.WithMarkdown(true)),
		Dump:      dumps,
		Logger:    logger,
	}
	if renderer != nil {
		components.Renderer = renderer
	}
	if provider != nil {
		components.Search = provider
	}

	a.orchestrator, err = fetch.New(components, fetch.Options{
		AllowHeadless:        cfg.Fetch.AllowHeadless,
		AllowHTMLFallback:    cfg.Fetch.AllowHTMLFallback,
		RequestIntervalFloor: cfg.Fetch.RequestIntervalFloor,
		MinBodyLength:        cfg.Fetch.MinBodyLength,
		UserAgent:            cfg.Fetch.UserAgent,
		RespectCrawlDelay:    cfg.Fetch.RespectCrawlDelay,
		APIResultCount:       fetch.DefaultOptions().APIResultCount,
	})
	if err != nil {
		return nil, err
	}

	a.pool = workers.NewFetchPool(a.orchestrator, workers.PoolConfig{MaxWorkers: cfg.Fetch.MaxWorkers}, logger)
	if err := a.pool.Start(); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.pool.Stop)

	if provider != nil {
		a.collector = fetch.NewCollector(provider, a.robots, a.pool, cfg.Fetch.UserAgent, logger)
	}

	logger.Info("Fetch subsystem ready", map[string]interface{}{
		"api_strategy":   provider != nil,
		"headless":       renderer != nil,
		"allow_headless": cfg.Fetch.AllowHeadless,
		"workers":        a.pool.Workers(),
		"cache":          cfg.Cache.Type,
		"domains":        len(domains),
	})

	ok = true
	return a, nil
}

// newRenderer starts a browser only when some policy can reach the headless
// strategy. A browser that fails to start is fatal in that case.
func newRenderer(cfg config.FetchConfig, table *config.DomainTable, logger interfaces.Logger) (interfaces.Renderer, error) {
	if !headlessReachable(cfg, table) {
		return nil, nil
	}

	opts := render.Options{
		Timeout:   cfg.HeadlessTimeout,
		Sessions:  cfg.RenderSessions,
		UserAgent: standard.PickUserAgent(cfg.UserAgent, nil),
	}

	var (
		r   interfaces.Renderer
		err error
	)
	switch cfg.RenderEngine {
	case "", "rod":
		r, err = rod.New(opts, logger)
	case "chromedp":
		r, err = chromedp.New(opts, logger)
	default:
		return nil, &coreerrors.ConfigError{Setting: "AR_RENDER_ENGINE", Message: "must be rod or chromedp"}
	}
	if err != nil {
		return nil, &coreerrors.ConfigError{Setting: "AR_RENDER_ENGINE", Message: "headless browser failed to start", Err: err}
	}
	return r, nil
}

func headlessReachable(cfg config.FetchConfig, table *config.DomainTable) bool {
	if cfg.AllowHeadless || table.Default.AllowHeadless {
		return true
	}
	for _, e := range table.Domains {
		if e.AllowHeadless {
			return true
		}
	}
	return false
}

// newSearchProvider returns nil when no credential is configured, which
// removes the API strategy.
func newSearchProvider(cfg config.SearchConfig, deps interfaces.Dependencies) (interfaces.SearchProvider, error) {
	if !cfg.HasCredential() {
		return nil, nil
	}
	pacer := search.NewPacer(cfg.RequestInterval)
	switch cfg.Provider {
	case "", "brave":
		return brave.NewClient(cfg.BraveAPIKey, cfg.BraveEndpoint, deps, pacer), nil
	case "serper":
		return serper.NewClient(cfg.SerperAPIKey, cfg.SerperEndpoint, deps, pacer), nil
	default:
		return nil, &coreerrors.ConfigError{Setting: "SEARCH_PROVIDER", Message: "must be brave or serper"}
	}
}

// close releases components in reverse creation order
func (a *app) close() {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	a.closers = nil
	if errs != nil && a.logger != nil {
		a.logger.Warn("Shutdown reported errors", map[string]interface{}{"error": errs.Error()})
	}
}

// run fetches reqs through the pool and calls emit for each result
func (a *app) run(ctx context.Context, reqs []domain.FetchRequest, emit func(domain.FetchResult) error) error {
	for r := range a.pool.Run(ctx, reqs) {
		if err := emit(r); err != nil {
			return err
		}
	}
	return nil
}
