// ABOUTME: Per-domain HTTP session registry with TTL eviction
// ABOUTME: Each registrable domain gets one cookie jar, one connection pool and one request lock

package session

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"content-fetch-api/core/interfaces"

	"github.com/patrickmn/go-cache"
	"golang.org/x/net/publicsuffix"
)

// Session is the politeness and connection state for one domain
type Session struct {
	domain string
	client *http.Client

	// mu serializes requests to the domain; the rate limiter holds it from the
	// politeness wait until the request completes
	mu sync.Mutex

	stateMu     sync.Mutex
	lastRequest time.Time
}

// Domain returns the registrable domain the session belongs to
func (s *Session) Domain() string { return s.domain }

// Client returns the domain's pooled HTTP client
func (s *Session) Client() *http.Client { return s.client }

// Lock acquires the domain's request lock
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the domain's request lock
func (s *Session) Unlock() { s.mu.Unlock() }

// LastRequest returns when the previous request to the domain was issued
func (s *Session) LastRequest() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastRequest
}

// MarkRequest records that a request was issued at t
func (s *Session) MarkRequest(t time.Time) {
	s.stateMu.Lock()
	s.lastRequest = t
	s.stateMu.Unlock()
}

func (s *Session) close() {
	s.client.CloseIdleConnections()
}

// Config holds registry settings
type Config struct {
	// TTL is how long an idle session survives
	TTL time.Duration

	// CleanupInterval is how often expired sessions are swept
	CleanupInterval time.Duration
}

// DefaultConfig returns a 30 minute idle TTL swept every minute
func DefaultConfig() Config {
	return Config{
		TTL:             30 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Registry hands out exactly one live Session per domain
type Registry struct {
	cfg      Config
	sessions *cache.Cache
	mu       sync.Mutex
	logger   interfaces.Logger
}

// NewRegistry creates a registry. logger may be nil.
func NewRegistry(cfg Config, logger interfaces.Logger) *Registry {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	r := &Registry{
		cfg:      cfg,
		sessions: cache.New(cfg.TTL, cfg.CleanupInterval),
		logger:   logger,
	}
	r.sessions.OnEvicted(func(key string, value interface{}) {
		if s, ok := value.(*Session); ok {
			s.close()
			if r.logger != nil {
				r.logger.Debug("Session evicted", map[string]interface{}{"domain": key})
			}
		}
	})
	return r
}

// Get returns the domain's session, creating it on first use. Every access
// refreshes the idle TTL.
func (r *Registry) Get(domain string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.sessions.Get(domain); ok {
		s := v.(*Session)
		r.sessions.SetDefault(domain, s)
		return s
	}

	s := r.newSession(domain)
	r.sessions.SetDefault(domain, s)
	return s
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Close drops every session and closes idle connections
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for domain := range r.sessions.Items() {
		// Delete fires the eviction callback which closes the session
		r.sessions.Delete(domain)
	}
}

func (r *Registry) newSession(domain string) *Session {
	// cookiejar.New never returns an error
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		// Content-Encoding is decoded by the page fetcher so brotli is handled too
		DisableCompression: true,
	}

	// No client-wide timeout: each attempt's context carries its domain policy timeout
	return &Session{
		domain: domain,
		client: &http.Client{
			Jar:       jar,
			Transport: transport,
		},
	}
}
