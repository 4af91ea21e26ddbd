// ABOUTME: Run toggles for the fetch subsystem, read once at startup
// ABOUTME: Provides interface-based toggles with environment and static backends

package featureflags

import (
	"context"
	"os"
	"strings"
	"sync"
)

// FeatureFlag represents a single run toggle
type FeatureFlag string

// Defined toggles
const (
	// AllowHeadless opts every domain into headless rendering
	AllowHeadless FeatureFlag = "allow_headless"

	// AllowHTMLFallback lets a failed provider API lookup fall through to direct HTTP
	AllowHTMLFallback FeatureFlag = "allow_html_fallback"

	// RandomizeDelays adds jitter between same-domain requests
	RandomizeDelays FeatureFlag = "randomize_delays"

	// DebugDump persists raw bodies of failed and thin fetches
	DebugDump FeatureFlag = "debug_dump"

	// RespectCrawlDelay raises a domain's minimum delay to its robots crawl-delay
	RespectCrawlDelay FeatureFlag = "respect_crawl_delay"

	// RateLimitEnabled enables per-client limiting on the HTTP API
	RateLimitEnabled FeatureFlag = "rate_limit_enabled"
)

// Defaults returns the state of each toggle when nothing is configured
func Defaults() map[FeatureFlag]bool {
	return map[FeatureFlag]bool{
		AllowHeadless:     false,
		AllowHTMLFallback: true,
		RandomizeDelays:   true,
		DebugDump:         false,
		RespectCrawlDelay: true,
		RateLimitEnabled:  true,
	}
}

// Manager defines the interface for toggle lookup
type Manager interface {
	// IsEnabled checks if a toggle is on
	IsEnabled(ctx context.Context, flag FeatureFlag) bool

	// SetEnabled sets a toggle's state (for testing)
	SetEnabled(flag FeatureFlag, enabled bool)

	// GetAllFlags returns the state of all toggles
	GetAllFlags() map[FeatureFlag]bool
}

// EnvManager implements Manager using environment variables
type EnvManager struct {
	mu        sync.RWMutex
	overrides map[FeatureFlag]bool
	defaults  map[FeatureFlag]bool
	prefix    string
}

// NewEnvManager creates a new environment-based toggle manager
func NewEnvManager(prefix string) *EnvManager {
	if prefix == "" {
		prefix = "AR_"
	}
	return &EnvManager{
		overrides: make(map[FeatureFlag]bool),
		defaults:  Defaults(),
		prefix:    prefix,
	}
}

// IsEnabled checks if a toggle is on. An unset variable falls back to the default.
func (m *EnvManager) IsEnabled(ctx context.Context, flag FeatureFlag) bool {
	m.mu.RLock()
	if enabled, ok := m.overrides[flag]; ok {
		m.mu.RUnlock()
		return enabled
	}
	def := m.defaults[flag]
	m.mu.RUnlock()

	envKey := m.prefix + strings.ToUpper(string(flag))
	value, ok := os.LookupEnv(envKey)
	if !ok || strings.TrimSpace(value) == "" {
		return def
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "enabled", "on", "yes":
		return true
	}
	return false
}

// SetEnabled sets a toggle's state (mainly for testing)
func (m *EnvManager) SetEnabled(flag FeatureFlag, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[flag] = enabled
}

// GetAllFlags returns the state of all defined toggles
func (m *EnvManager) GetAllFlags() map[FeatureFlag]bool {
	ctx := context.Background()
	flags := make(map[FeatureFlag]bool, len(m.defaults))
	for flag := range Defaults() {
		flags[flag] = m.IsEnabled(ctx, flag)
	}
	return flags
}

// StaticManager implements Manager with static configuration
type StaticManager struct {
	flags map[FeatureFlag]bool
	mu    sync.RWMutex
}

// NewStaticManager creates a manager with predefined toggle states
func NewStaticManager(flags map[FeatureFlag]bool) *StaticManager {
	if flags == nil {
		flags = make(map[FeatureFlag]bool)
	}
	return &StaticManager{
		flags: flags,
	}
}

// IsEnabled checks if a toggle is on
func (m *StaticManager) IsEnabled(ctx context.Context, flag FeatureFlag) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[flag]
}

// SetEnabled sets a toggle's state
func (m *StaticManager) SetEnabled(flag FeatureFlag, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[flag] = enabled
}

// GetAllFlags returns all toggle states
func (m *StaticManager) GetAllFlags() map[FeatureFlag]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[FeatureFlag]bool)
	for k, v := range m.flags {
		result[k] = v
	}
	return result
}
