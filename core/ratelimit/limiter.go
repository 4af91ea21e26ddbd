// ABOUTME: Per-domain politeness limiter enforcing a randomized minimum spacing
// ABOUTME: A turn holds only the target domain's lock, so other domains never block

package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/session"
)

// Limiter spaces same-domain requests by MinDelay plus uniform jitter
type Limiter struct {
	sessions  *session.Registry
	floor     time.Duration
	randomize bool

	// jitter draws a duration in [0, max]; replaced in tests
	jitter func(max time.Duration) time.Duration
	now    func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithFloor raises every domain's minimum delay to at least d
func WithFloor(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.floor = d
		}
	}
}

// WithRandomize toggles jitter. Without it the wait is exactly the minimum delay.
func WithRandomize(on bool) Option {
	return func(l *Limiter) { l.randomize = on }
}

// WithJitterSource replaces the random source
func WithJitterSource(fn func(max time.Duration) time.Duration) Option {
	return func(l *Limiter) { l.jitter = fn }
}

// New creates a limiter whose timestamps live in the session registry
func New(sessions *session.Registry, opts ...Option) *Limiter {
	l := &Limiter{
		sessions:  sessions,
		randomize: true,
		jitter:    uniformJitter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}

// Effective returns p with its minimum delay raised to the run floor and
// crawlDelay. The jitter window width is kept.
func (l *Limiter) Effective(p domain.DomainPolicy, crawlDelay time.Duration) domain.DomainPolicy {
	width := p.Jitter()
	min := p.MinDelay
	if l.floor > min {
		min = l.floor
	}
	if crawlDelay > min {
		min = crawlDelay
	}
	p.MinDelay = min
	p.MaxDelay = min + width
	return p
}

// Delay returns the spacing to use for the next request under p
func (l *Limiter) Delay(p domain.DomainPolicy) time.Duration {
	p = l.Effective(p, 0)
	if !l.randomize {
		return p.MinDelay
	}
	return p.MinDelay + l.jitter(p.Jitter())
}

// WaitTurn blocks until the domain's spacing has elapsed since its previous
// request, records the new request time and returns with the domain's lock
// held. The caller must call release once its request has finished; no other
// request to the domain starts before then. On error the lock is not held and
// the previous timestamp is untouched.
func (l *Limiter) WaitTurn(ctx context.Context, dom string, p domain.DomainPolicy) (release func(), err error) {
	s := l.sessions.Get(dom)

	if err := lockContext(ctx, s); err != nil {
		return nil, err
	}

	delay := l.Delay(p)
	if last := s.LastRequest(); !last.IsZero() {
		if rest := last.Add(delay).Sub(l.now()); rest > 0 {
			timer := time.NewTimer(rest)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				s.Unlock()
				return nil, ctx.Err()
			}
		}
	}

	s.MarkRequest(l.now())
	var once sync.Once
	return func() { once.Do(s.Unlock) }, nil
}

// lockContext takes the session lock unless ctx ends first
func lockContext(ctx context.Context, s *session.Session) error {
	acquired := make(chan struct{})
	go func() {
		s.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// Hand the lock back once the pending acquisition completes
		go func() {
			<-acquired
			s.Unlock()
		}()
		return ctx.Err()
	}
}
