// ABOUTME: Per-domain fetch policy resolved before every fetch
// ABOUTME: Values are immutable once resolved for a request

package domain

import "time"

// PolicySource tells whether a policy came from the domain table or the default
type PolicySource string

const (
	PolicySourceTable   PolicySource = "table"
	PolicySourceDefault PolicySource = "default"
)

// DomainPolicy controls how a single domain is fetched
type DomainPolicy struct {
	// Domain is the table key that matched, or the registrable domain for defaults
	Domain string `json:"domain"`

	// AllowHeadless permits the headless rendering strategy
	AllowHeadless bool `json:"allow_headless"`

	// MinDelay is the minimum spacing between requests to the domain
	MinDelay time.Duration `json:"min_delay"`

	// MaxDelay bounds the randomized spacing
	MaxDelay time.Duration `json:"max_delay"`

	// Timeout is the per-request network timeout
	Timeout time.Duration `json:"timeout"`

	// MaxRetries is the retry budget per strategy
	MaxRetries int `json:"max_retries"`

	Source PolicySource `json:"source"`
}

// Jitter returns the width of the randomized window above MinDelay
func (p DomainPolicy) Jitter() time.Duration {
	if p.MaxDelay <= p.MinDelay {
		return 0
	}
	return p.MaxDelay - p.MinDelay
}
