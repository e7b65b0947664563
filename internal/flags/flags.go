// Package flags evaluates remotely-configured feature flags with a
// process-local TTL cache, falling back to a caller-supplied default when the
// flag service is unavailable.
package flags

import (
	"context"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
	"github.com/sirupsen/logrus"
)

// Evaluator answers whether a flag is enabled for a subject.
type Evaluator interface {
	IsEnabled(ctx context.Context, key, distinctID string) (bool, error)
}

// PostHogEvaluator evaluates flags against PostHog.
type PostHogEvaluator struct {
	client posthog.Client
}

// NewPostHogEvaluator wraps a PostHog client. A nil client is allowed and
// makes every evaluation fall back to the caller's default.
func NewPostHogEvaluator(client posthog.Client) *PostHogEvaluator {
	return &PostHogEvaluator{client: client}
}

func (e *PostHogEvaluator) IsEnabled(ctx context.Context, key, distinctID string) (bool, error) {
	if e == nil || e.client == nil {
		return false, errFlagServiceUnavailable
	}
	value, err := e.client.IsFeatureEnabled(posthog.FeatureFlagPayload{
		Key:        key,
		DistinctId: distinctID,
	})
	if err != nil {
		return false, err
	}
	enabled, ok := value.(bool)
	if !ok {
		return false, errFlagServiceUnavailable
	}
	return enabled, nil
}

var errFlagServiceUnavailable = errUnavailable{}

type errUnavailable struct{}

func (errUnavailable) Error() string { return "flag service unavailable" }

type cacheKey struct {
	flag    string
	subject string
}

type cacheEntry struct {
	value     bool
	expiresAt time.Time
}

// Cache is a process-local memo of remote flag values. Entries live for the
// configured TTL; within it, repeat lookups never touch the remote service.
// Evaluation errors are not cached, so the next lookup retries.
type Cache struct {
	eval Evaluator
	ttl  time.Duration
	log  *logrus.Logger

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry

	now func() time.Time // overridable in tests
}

// NewCache builds a flag cache over the evaluator.
func NewCache(eval Evaluator, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{
		eval:    eval,
		ttl:     ttl,
		log:     log,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

// Enabled returns the flag value for the subject, consulting the cache first
// and falling back to def when the remote service errors.
func (c *Cache) Enabled(ctx context.Context, key, distinctID string, def bool) bool {
	k := cacheKey{flag: key, subject: distinctID}

	c.mu.Lock()
	entry, ok := c.entries[k]
	c.mu.Unlock()
	if ok && entry.expiresAt.After(c.now()) {
		return entry.value
	}

	value, err := c.eval.IsEnabled(ctx, key, distinctID)
	if err != nil {
		c.log.WithError(err).WithField("flag", key).Warn("flag evaluation failed, using default")
		return def
	}

	c.mu.Lock()
	c.entries[k] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return value
}
