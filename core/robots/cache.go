// ABOUTME: robots.txt policy cache with per-origin TTL and fail-open semantics
// ABOUTME: Parsed rules live in a process-local cache; raw bodies can be shared through a cache backend

package robots

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/utils/hostname"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// maxRobotsBytes bounds how much of a robots.txt body is read
const maxRobotsBytes = 512 * 1024

// Config holds robots cache settings
type Config struct {
	// UserAgent is sent when fetching robots.txt and used for group matching
	UserAgent string

	// Timeout bounds a single robots.txt fetch
	Timeout time.Duration

	// TTL is how long parsed rules are trusted
	TTL time.Duration

	// NegativeTTL is how long an unreachable robots.txt is assumed to allow everything
	NegativeTTL time.Duration

	// CleanupInterval is how often expired entries are swept
	CleanupInterval time.Duration
}

// DefaultConfig returns 5s fetch timeout, 1h TTL and 5m negative TTL
func DefaultConfig() Config {
	return Config{
		UserAgent:       "Mozilla/5.0 (compatible; ar-bot/1.0)",
		Timeout:         5 * time.Second,
		TTL:             time.Hour,
		NegativeTTL:     5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// Rule is the cached robots state of one origin
type Rule struct {
	Origin    string
	FetchedAt time.Time
	TTL       time.Duration

	// AssumeAllowed marks an origin whose robots.txt could not be retrieved
	AssumeAllowed bool

	data *robotstxt.RobotsData
}

// Verdict is the answer for one URL
type Verdict struct {
	URL           string        `json:"url"`
	Origin        string        `json:"origin"`
	Allowed       bool          `json:"allowed"`
	AssumeAllowed bool          `json:"assume_allowed"`
	CrawlDelay    time.Duration `json:"crawl_delay"`
	Agent         string        `json:"agent"`
}

// Cache answers robots.txt queries, fetching each origin's file at most once per TTL
type Cache struct {
	cfg    Config
	client interfaces.HTTPClient
	store  interfaces.Cache
	logger interfaces.Logger
	rules  *gocache.Cache
	group  singleflight.Group
}

// New creates a robots cache. deps.Cache, when set, persists raw robots bodies
// so that separate processes share them.
func New(cfg Config, deps interfaces.Dependencies) *Cache {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = def.NegativeTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	return &Cache{
		cfg:    cfg,
		client: deps.HTTPClient,
		store:  deps.Cache,
		logger: deps.Logger,
		rules:  gocache.New(cfg.TTL, cfg.CleanupInterval),
	}
}

// IsAllowed reports whether userAgent may fetch rawURL. Any failure to obtain
// robots.txt yields true. An unparseable URL yields false.
func (c *Cache) IsAllowed(ctx context.Context, rawURL, userAgent string) bool {
	v, err := c.Check(ctx, rawURL, userAgent)
	if err != nil {
		return false
	}
	return v.Allowed
}

// CrawlDelay returns the crawl-delay directive that applies to userAgent, or 0
func (c *Cache) CrawlDelay(ctx context.Context, rawURL, userAgent string) time.Duration {
	v, err := c.Check(ctx, rawURL, userAgent)
	if err != nil {
		return 0
	}
	return v.CrawlDelay
}

// Check evaluates rawURL and reports the full verdict
func (c *Cache) Check(ctx context.Context, rawURL, userAgent string) (Verdict, error) {
	u, err := hostname.Parse(rawURL)
	if err != nil {
		return Verdict{URL: rawURL}, err
	}
	if userAgent == "" {
		userAgent = c.cfg.UserAgent
	}

	origin := hostname.Origin(u)
	rule := c.rule(ctx, origin)
	agent := AgentToken(userAgent)

	v := Verdict{
		URL:           rawURL,
		Origin:        origin,
		Allowed:       true,
		AssumeAllowed: rule.AssumeAllowed,
		Agent:         agent,
	}
	if rule.AssumeAllowed || rule.data == nil {
		return v, nil
	}

	group := rule.data.FindGroup(agent)
	if group == nil {
		return v, nil
	}
	v.Allowed = group.Test(requestPath(u))
	v.CrawlDelay = group.CrawlDelay
	return v, nil
}

// Purge forgets the cached rule for the origin of rawURL
func (c *Cache) Purge(ctx context.Context, rawURL string) {
	u, err := hostname.Parse(rawURL)
	if err != nil {
		return
	}
	origin := hostname.Origin(u)
	c.rules.Delete(origin)
	if c.store != nil {
		_ = c.store.Delete(ctx, storeKey(origin))
	}
}

func (c *Cache) rule(ctx context.Context, origin string) *Rule {
	if v, ok := c.rules.Get(origin); ok {
		return v.(*Rule)
	}

	v, _, _ := c.group.Do(origin, func() (interface{}, error) {
		// Another caller may have filled the entry while this one queued
		if v, ok := c.rules.Get(origin); ok {
			return v.(*Rule), nil
		}
		rule := c.load(ctx, origin)
		c.rules.Set(origin, rule, rule.TTL)
		return rule, nil
	})
	return v.(*Rule)
}

func (c *Cache) load(ctx context.Context, origin string) *Rule {
	if c.store != nil {
		if body, err := c.store.Get(ctx, storeKey(origin)); err == nil {
			if data, err := robotstxt.FromBytes(body); err == nil {
				return &Rule{Origin: origin, FetchedAt: time.Now(), TTL: c.cfg.TTL, data: data}
			}
		}
	}

	// The fetch is shared by every waiter on this origin, so one caller's
	// cancellation must not fail the others
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	body, err := c.fetch(fetchCtx, origin)
	if err == nil {
		var data *robotstxt.RobotsData
		data, err = robotstxt.FromBytes(body)
		if err == nil {
			if c.store != nil {
				if serr := c.store.Set(ctx, storeKey(origin), body, c.cfg.TTL); serr != nil && c.logger != nil {
					c.logger.Debug("Failed to persist robots.txt", map[string]interface{}{
						"origin": origin,
						"error":  serr.Error(),
					})
				}
			}
			return &Rule{Origin: origin, FetchedAt: time.Now(), TTL: c.cfg.TTL, data: data}
		}
		err = fmt.Errorf("parse robots.txt: %w", err)
	}

	if c.logger != nil {
		c.logger.Warn("robots.txt unavailable, assuming allowed", map[string]interface{}{
			"origin":       origin,
			"error":        err.Error(),
			"negative_ttl": c.cfg.NegativeTTL.String(),
		})
	}
	return &Rule{Origin: origin, FetchedAt: time.Now(), TTL: c.cfg.NegativeTTL, AssumeAllowed: true}
}

func (c *Cache) fetch(ctx context.Context, origin string) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("no HTTP client configured")
	}

	resp, err := c.client.Get(ctx, origin+"/robots.txt", map[string]string{
		"User-Agent": c.cfg.UserAgent,
		"Accept":     "text/plain,*/*;q=0.5",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	body := resp.Body()
	if body != nil {
		defer body.Close()
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode())
	}
	if body == nil {
		return []byte{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	return data, nil
}

// AgentToken extracts the product token robots groups are matched against.
// "Mozilla/5.0 (compatible; ar-bot/1.0)" yields "ar-bot".
func AgentToken(userAgent string) string {
	ua := strings.TrimSpace(userAgent)
	lower := strings.ToLower(ua)
	if i := strings.Index(lower, "compatible;"); i >= 0 {
		rest := strings.TrimSpace(ua[i+len("compatible;"):])
		if end := strings.IndexAny(rest, "/;) "); end > 0 {
			return rest[:end]
		}
		if rest != "" {
			return rest
		}
	}
	if end := strings.IndexAny(ua, "/ "); end > 0 {
		return ua[:end]
	}
	if ua == "" {
		return "*"
	}
	return ua
}

func requestPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

func storeKey(origin string) string {
	return "robots:" + origin
}
