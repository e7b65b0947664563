package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"tally/internal/analytics"
	"tally/internal/cache"
	apperrors "tally/internal/errors"
	"tally/internal/ratelimit"
	"tally/internal/repository"
)

const counterCacheTTL = 30 * time.Second

// Counter actions.
const (
	ActionIncrement = "increment"
	ActionDecrement = "decrement"
)

// Gate decides whether a mutation may proceed.
type Gate interface {
	Allow(ctx context.Context, subject string) ratelimit.Decision
}

// CounterService exposes the per-user counter.
type CounterService interface {
	// Get returns the counter value, creating the row on first access.
	Get(ctx context.Context, userID uint) (int64, error)
	// Apply runs an increment/decrement through the rate-limit gate and
	// returns the new value.
	Apply(ctx context.Context, userID uint, action string) (int64, error)
}

type counterService struct {
	counters repository.CounterRepository
	gate     Gate
	events   *analytics.Client
	cache    *cache.Client
	log      *logrus.Logger
}

// NewCounterService builds a CounterService.
func NewCounterService(counters repository.CounterRepository, gate Gate, events *analytics.Client, cache *cache.Client, log *logrus.Logger) CounterService {
	return &counterService{counters: counters, gate: gate, events: events, cache: cache, log: log}
}

func (s *counterService) cacheKey(userID uint) string {
	return fmt.Sprintf("counter:%d", userID)
}

func (s *counterService) Get(ctx context.Context, userID uint) (int64, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(userID)); data != nil {
		if value, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			return value, nil
		}
	}

	counter, err := s.counters.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load counter: %w", err)
	}

	payload := []byte(strconv.FormatInt(counter.Value, 10))
	_ = s.cache.Set(ctx, s.cacheKey(userID), payload, counterCacheTTL)
	return counter.Value, nil
}

func (s *counterService) Apply(ctx context.Context, userID uint, action string) (int64, error) {
	var delta int64
	switch action {
	case ActionIncrement:
		delta = 1
	case ActionDecrement:
		delta = -1
	default:
		return 0, apperrors.ErrUnknownAction
	}

	decision := s.gate.Allow(ctx, distinctID(userID))
	if !decision.Allowed {
		return 0, &apperrors.RateLimitError{RetryAfter: decision.RetryAfter}
	}

	// Ensure the row exists, then mutate in a single atomic statement.
	if _, err := s.counters.GetOrCreate(ctx, userID); err != nil {
		return 0, fmt.Errorf("load counter: %w", err)
	}
	if err := s.counters.Add(ctx, userID, delta); err != nil {
		return 0, fmt.Errorf("update counter: %w", err)
	}
	counter, err := s.counters.FindByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("reload counter: %w", err)
	}

	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	s.events.Capture(distinctID(userID), "counter_changed", map[string]interface{}{
		"action": action,
		"value":  counter.Value,
	})
	return counter.Value, nil
}
