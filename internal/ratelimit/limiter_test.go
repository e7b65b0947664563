package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"tally/internal/cache"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// fakeWindowStore keeps events in memory per key.
type fakeWindowStore struct {
	events    map[string][]time.Time
	slideErr  error
	recordErr error
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{events: make(map[string][]time.Time)}
}

func (s *fakeWindowStore) Slide(_ context.Context, key string, cutoff time.Time) (int64, time.Time, error) {
	if s.slideErr != nil {
		return 0, time.Time{}, s.slideErr
	}
	kept := s.events[key][:0]
	for _, ts := range s.events[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.events[key] = kept
	var oldest time.Time
	if len(kept) > 0 {
		oldest = kept[0]
	}
	return int64(len(kept)), oldest, nil
}

func (s *fakeWindowStore) Record(_ context.Context, key string, now time.Time, _ time.Duration) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.events[key] = append(s.events[key], now)
	return nil
}

// fakeFlags returns a fixed value for every flag.
type fakeFlags struct {
	value bool
	calls int
}

func (f *fakeFlags) Enabled(_ context.Context, _, _ string, _ bool) bool {
	f.calls++
	return f.value
}

func TestLimiter_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{name: "empty addr", addr: ""},
		{name: "whitespace addr", addr: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(cache.New(tt.addr, "", 0), nil, 3, 10*time.Second, quietLogger())
			for i := 0; i < 10; i++ {
				decision := limiter.Allow(context.Background(), "user-1")
				assert.True(t, decision.Allowed)
			}
		})
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	store := newFakeWindowStore()
	limiter := newWithStore(store, nil, 3, 10*time.Second, quietLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		decision := limiter.Allow(context.Background(), "user-1")
		assert.True(t, decision.Allowed, "action %d should pass", i+1)
		now = now.Add(time.Second)
	}

	// 4th action inside the window is denied
	decision := limiter.Allow(context.Background(), "user-1")
	assert.False(t, decision.Allowed)
	assert.GreaterOrEqual(t, decision.RetryAfter, 1)
	// oldest event was 3s ago in a 10s window
	assert.Equal(t, 7, decision.RetryAfter)

	// a different subject has its own window
	other := limiter.Allow(context.Background(), "user-2")
	assert.True(t, other.Allowed)

	// once the oldest event slides out, the subject may act again
	now = now.Add(8 * time.Second)
	decision = limiter.Allow(context.Background(), "user-1")
	assert.True(t, decision.Allowed)
}

func TestLimiter_RetryAfterFlooredAtOneSecond(t *testing.T) {
	store := newFakeWindowStore()
	limiter := newWithStore(store, nil, 1, time.Second, quietLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow(context.Background(), "u").Allowed)

	now = now.Add(999 * time.Millisecond)
	decision := limiter.Allow(context.Background(), "u")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1, decision.RetryAfter)
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	store := newFakeWindowStore()
	store.slideErr = assert.AnError
	limiter := newWithStore(store, nil, 3, 10*time.Second, quietLogger())

	decision := limiter.Allow(context.Background(), "user-1")
	assert.True(t, decision.Allowed)
}

func TestLimiter_FlagDisablesLimiting(t *testing.T) {
	store := newFakeWindowStore()
	flags := &fakeFlags{value: false}
	limiter := newWithStore(store, flags, 1, 10*time.Second, quietLogger())

	for i := 0; i < 5; i++ {
		decision := limiter.Allow(context.Background(), "user-1")
		assert.True(t, decision.Allowed)
	}
	assert.Equal(t, 5, flags.calls)
	assert.Empty(t, store.events, "store must not be touched with the flag off")
}
