// ABOUTME: Domain policy resolution by longest host-suffix match
// ABOUTME: Subdomains inherit their registrable domain's entry unless a more specific one exists

package policy

import (
	"strings"

	"content-fetch-api/core/domain"
	"content-fetch-api/pkg/utils/hostname"
)

// Resolver maps a URL to the DomainPolicy that governs fetching it
type Resolver struct {
	table          map[string]domain.DomainPolicy
	def            domain.DomainPolicy
	globalHeadless bool
}

// NewResolver creates a resolver over table. globalHeadless is the run-wide
// switch; a domain entry may be more permissive than it, never less.
func NewResolver(def domain.DomainPolicy, table map[string]domain.DomainPolicy, globalHeadless bool) *Resolver {
	normalized := make(map[string]domain.DomainPolicy, len(table))
	for k, p := range table {
		normalized[hostname.Normalize(k)] = p
	}
	return &Resolver{
		table:          normalized,
		def:            def,
		globalHeadless: globalHeadless,
	}
}

// Resolve returns the effective policy for rawURL. Unparseable URLs get the default policy.
func (r *Resolver) Resolve(rawURL string) domain.DomainPolicy {
	u, err := hostname.Parse(rawURL)
	if err != nil {
		return r.effective(r.def)
	}
	return r.ResolveHost(u.Hostname())
}

// ResolveHost returns the effective policy for a bare host
func (r *Resolver) ResolveHost(host string) domain.DomainPolicy {
	host = hostname.Normalize(host)

	// Walk labels left to right so the first hit is the longest suffix
	candidate := host
	for candidate != "" {
		if p, ok := r.table[candidate]; ok {
			p.Domain = candidate
			p.Source = domain.PolicySourceTable
			return r.effective(p)
		}
		i := strings.IndexByte(candidate, '.')
		if i < 0 {
			break
		}
		candidate = candidate[i+1:]
	}

	p := r.def
	p.Domain = hostname.Registrable(host)
	p.Source = domain.PolicySourceDefault
	return r.effective(p)
}

// Default returns the policy applied to unmatched domains
func (r *Resolver) Default() domain.DomainPolicy {
	return r.effective(r.def)
}

// RegistrableDomain returns the key under which per-domain state is kept
func RegistrableDomain(host string) string {
	return hostname.Registrable(host)
}

func (r *Resolver) effective(p domain.DomainPolicy) domain.DomainPolicy {
	p.AllowHeadless = p.AllowHeadless || r.globalHeadless
	return p
}
