// Package ratelimit gates counter mutations with a sliding window backed by
// Redis sorted sets. The limiter fails open: when Redis is unconfigured or
// unreachable the request is allowed and the failure is only logged, an
// explicit availability-over-consistency choice.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tally/internal/cache"
)

// FlagKey is the feature flag controlling whether rate limiting applies.
const FlagKey = "rate-limits-enabled"

const keyPrefix = "ratelimit:"

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed    bool
	RetryAfter int // seconds, >= 1 when denied
}

// FlagSource answers feature-flag lookups with a default.
type FlagSource interface {
	Enabled(ctx context.Context, key, distinctID string, def bool) bool
}

// windowStore records events and reports window occupancy.
type windowStore interface {
	// Slide prunes entries at or before cutoff and reports the remaining
	// count together with the oldest remaining timestamp (zero when empty).
	Slide(ctx context.Context, key string, cutoff time.Time) (count int64, oldest time.Time, err error)
	// Record adds an event at now and refreshes the key's TTL.
	Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error
}

// Limiter enforces at most max events per subject in any trailing window.
type Limiter struct {
	store  windowStore // nil when redis is not configured
	flags  FlagSource
	max    int
	window time.Duration
	log    *logrus.Logger

	now        func() time.Time // overridable in tests
	notifyOnce sync.Once
}

// New builds a limiter over the shared redis client. An unconfigured client
// yields a limiter that always allows.
func New(c *cache.Client, flags FlagSource, max int, window time.Duration, log *logrus.Logger) *Limiter {
	var store windowStore
	if c.Configured() {
		store = &redisWindowStore{rdb: c.Unwrap()}
	}
	return newWithStore(store, flags, max, window, log)
}

func newWithStore(store windowStore, flags FlagSource, max int, window time.Duration, log *logrus.Logger) *Limiter {
	return &Limiter{
		store:  store,
		flags:  flags,
		max:    max,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

// Allow checks the subject against the sliding window. The remotely-evaluated
// kill-switch flag (default enabled) is consulted first; with the flag off,
// or without a configured store, every request passes.
func (l *Limiter) Allow(ctx context.Context, subject string) Decision {
	if l.flags != nil && !l.flags.Enabled(ctx, FlagKey, subject, true) {
		return Decision{Allowed: true}
	}
	if l.store == nil {
		l.notifyOnce.Do(func() {
			l.log.Warn("rate limiter not configured, all requests allowed")
		})
		return Decision{Allowed: true}
	}

	now := l.now()
	key := keyPrefix + subject

	count, oldest, err := l.store.Slide(ctx, key, now.Add(-l.window))
	if err != nil {
		l.log.WithError(err).Warn("rate limit check failed, failing open")
		return Decision{Allowed: true}
	}
	if count >= int64(l.max) {
		retry := oldest.Add(l.window).Sub(now)
		secs := int(math.Ceil(retry.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return Decision{Allowed: false, RetryAfter: secs}
	}

	if err := l.store.Record(ctx, key, now, l.window); err != nil {
		l.log.WithError(err).Warn("rate limit record failed, failing open")
	}
	return Decision{Allowed: true}
}
