// ABOUTME: Adaptive retry policy with outcome-specific backoff multipliers
// ABOUTME: Pure function of attempt index, failure kind and retry budget

package policy

import (
	"time"

	coreerrors "content-fetch-api/core/errors"
)

// RetryConfig tunes the backoff curve
type RetryConfig struct {
	Base time.Duration
	Cap  time.Duration

	BotDetected float64
	RateLimited float64
	ServerError float64
	Other       float64
}

// DefaultRetryConfig returns 600ms base, 30s cap and x3/x5/x2/x1 multipliers
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Base:        600 * time.Millisecond,
		Cap:         30 * time.Second,
		BotDetected: 3,
		RateLimited: 5,
		ServerError: 2,
		Other:       1,
	}
}

// RetryPolicy decides whether and when a failed attempt is retried
type RetryPolicy struct {
	cfg RetryConfig
}

// NewRetryPolicy creates a policy, filling zero fields from the defaults
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	def := DefaultRetryConfig()
	if cfg.Base <= 0 {
		cfg.Base = def.Base
	}
	if cfg.Cap <= 0 {
		cfg.Cap = def.Cap
	}
	if cfg.Cap < cfg.Base {
		cfg.Cap = cfg.Base
	}
	if cfg.BotDetected < 1 {
		cfg.BotDetected = def.BotDetected
	}
	if cfg.RateLimited < 1 {
		cfg.RateLimited = def.RateLimited
	}
	if cfg.ServerError < 1 {
		cfg.ServerError = def.ServerError
	}
	if cfg.Other < 1 {
		cfg.Other = def.Other
	}
	return &RetryPolicy{cfg: cfg}
}

// Multiplier returns the backoff factor for a failure kind
func (p *RetryPolicy) Multiplier(kind coreerrors.Kind) float64 {
	switch kind {
	case coreerrors.KindRateLimited:
		return p.cfg.RateLimited
	case coreerrors.KindBotDetected:
		return p.cfg.BotDetected
	case coreerrors.KindServerError:
		return p.cfg.ServerError
	}
	return p.cfg.Other
}

// NextDelay returns the wait before retrying after the attempt-th failure
// (1-based) and whether a retry should happen at all. The cap bounds the
// exponential term before the multiplier is applied.
func (p *RetryPolicy) NextDelay(attempt int, outcome coreerrors.Kind, maxRetries int) (time.Duration, bool) {
	if attempt < 1 || attempt > maxRetries || !outcome.Retryable() {
		return 0, false
	}

	backoff := p.cfg.Base
	for i := 1; i < attempt && backoff < p.cfg.Cap; i++ {
		backoff *= 2
	}
	if backoff > p.cfg.Cap {
		backoff = p.cfg.Cap
	}

	return time.Duration(float64(backoff) * p.Multiplier(outcome)), true
}
