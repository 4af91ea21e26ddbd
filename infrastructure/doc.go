// Package infrastructure provides concrete implementations of the interfaces
// defined in the core packages. These implementations handle external concerns
// such as page transport, headless rendering, provider search, robots.txt
// persistence, debug dumps and logging.
//
// The infrastructure package is organized by technical concern:
//
// - cache/memory: In-memory cache on patrickmn/go-cache
// - cache/redis: Redis-based cache shared between processes
// - cache/sqlite: File-backed cache that survives restarts
// - http/standard: API client with retry logic and the browser-like page fetcher
// - render/rod, render/chromedp: Headless browser renderers
// - search/brave, search/serper: Provider search API clients
// - dump: Writes raw bodies to a debug directory
// - logger: logrus and zap backed loggers
//
// # Cache Implementations
//
// The cache holds raw robots.txt bodies keyed by origin:
//
//	c, closeCache, err := cache.New(cfg.Cache, logger)
//	defer closeCache()
//	robotsCache := robots.New(robotsCfg, interfaces.Dependencies{Cache: c, ...})
//
// # HTTP
//
// The API client retries transient failures and backs provider search and
// robots.txt retrieval:
//
//	client := standard.NewStandardHTTPClient(10*time.Second, standard.WithMaxRetries(1))
//	resp, err := client.Get(ctx, "https://example.com/robots.txt", nil)
//	if err != nil {
//	    // Handle error
//	}
//	defer resp.Body().Close()
//
// Page retrieval goes through the PageFetcher, which never retries on its own:
//
//	pages := standard.NewPageFetcher(sessions, standard.PageFetcherOptions{})
//	raw, err := pages.Fetch(ctx, "https://example.com/about")
//
// # Logger
//
//	log, closeLog, err := logger.New(cfg.Log)
//	log.Info("Fetch completed", map[string]interface{}{
//	    "url":      "https://example.com/about",
//	    "strategy": "http",
//	})
package infrastructure
