package flags

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// countingEvaluator records how often the remote service is consulted.
type countingEvaluator struct {
	value bool
	err   error
	calls int
}

func (e *countingEvaluator) IsEnabled(_ context.Context, _, _ string) (bool, error) {
	e.calls++
	return e.value, e.err
}

func TestCache_ServesCachedValueWithinTTL(t *testing.T) {
	eval := &countingEvaluator{value: true}
	cache := NewCache(eval, 10*time.Minute, quietLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	assert.True(t, cache.Enabled(context.Background(), "rate-limits-enabled", "u1", false))
	assert.Equal(t, 1, eval.calls)

	// flip the remote value; the cache must keep serving the old one
	eval.value = false
	now = now.Add(9 * time.Minute)
	assert.True(t, cache.Enabled(context.Background(), "rate-limits-enabled", "u1", false))
	assert.Equal(t, 1, eval.calls)
}

func TestCache_RefreshesAfterTTL(t *testing.T) {
	eval := &countingEvaluator{value: true}
	cache := NewCache(eval, 10*time.Minute, quietLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	assert.True(t, cache.Enabled(context.Background(), "k", "u1", false))

	eval.value = false
	now = now.Add(10*time.Minute + time.Second)
	assert.False(t, cache.Enabled(context.Background(), "k", "u1", true))
	assert.Equal(t, 2, eval.calls)
}

func TestCache_SubjectsAreIndependent(t *testing.T) {
	eval := &countingEvaluator{value: true}
	cache := NewCache(eval, 10*time.Minute, quietLogger())

	cache.Enabled(context.Background(), "k", "u1", false)
	cache.Enabled(context.Background(), "k", "u2", false)
	assert.Equal(t, 2, eval.calls)
}

func TestCache_FallsBackToDefaultOnError(t *testing.T) {
	eval := &countingEvaluator{err: assert.AnError}
	cache := NewCache(eval, 10*time.Minute, quietLogger())

	assert.True(t, cache.Enabled(context.Background(), "k", "u1", true))
	assert.False(t, cache.Enabled(context.Background(), "k", "u1", false))

	// errors are not cached, every lookup retries the remote
	assert.Equal(t, 2, eval.calls)
}

func TestPostHogEvaluator_NilClient(t *testing.T) {
	eval := NewPostHogEvaluator(nil)
	_, err := eval.IsEnabled(context.Background(), "k", "u1")
	assert.Error(t, err)
}
