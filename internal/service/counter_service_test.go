package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tally/internal/cache"
	apperrors "tally/internal/errors"
	"tally/internal/model"
	"tally/internal/ratelimit"
)

// MockCounterRepository is a mock implementation of CounterRepository.
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) GetOrCreate(ctx context.Context, userID uint) (*model.Counter, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Counter), args.Error(1)
}

func (m *MockCounterRepository) Add(ctx context.Context, userID uint, delta int64) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

func (m *MockCounterRepository) FindByUserID(ctx context.Context, userID uint) (*model.Counter, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Counter), args.Error(1)
}

// stubGate returns a fixed decision.
type stubGate struct {
	decision ratelimit.Decision
	calls    int
}

func (g *stubGate) Allow(_ context.Context, _ string) ratelimit.Decision {
	g.calls++
	return g.decision
}

func noCache() *cache.Client {
	return cache.New("", "", 0)
}

func TestCounterService_Get_CreatesLazily(t *testing.T) {
	counters := new(MockCounterRepository)
	counters.On("GetOrCreate", mock.Anything, uint(1)).Return(&model.Counter{UserID: 1, Value: 0}, nil)

	svc := NewCounterService(counters, &stubGate{decision: ratelimit.Decision{Allowed: true}}, disabledAnalytics(), noCache(), quietLogger())

	value, err := svc.Get(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), value)
	counters.AssertCalled(t, "GetOrCreate", mock.Anything, uint(1))
}

func TestCounterService_Apply(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		wantDelta int64
		wantValue int64
	}{
		{name: "increment", action: ActionIncrement, wantDelta: 1, wantValue: 1},
		{name: "decrement", action: ActionDecrement, wantDelta: -1, wantValue: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counters := new(MockCounterRepository)
			counters.On("GetOrCreate", mock.Anything, uint(1)).Return(&model.Counter{UserID: 1, Value: 0}, nil)
			counters.On("Add", mock.Anything, uint(1), tt.wantDelta).Return(nil)
			counters.On("FindByUserID", mock.Anything, uint(1)).Return(&model.Counter{UserID: 1, Value: tt.wantValue}, nil)

			gate := &stubGate{decision: ratelimit.Decision{Allowed: true}}
			svc := NewCounterService(counters, gate, disabledAnalytics(), noCache(), quietLogger())

			value, err := svc.Apply(context.Background(), 1, tt.action)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
			assert.Equal(t, 1, gate.calls)
			counters.AssertCalled(t, "Add", mock.Anything, uint(1), tt.wantDelta)
		})
	}
}

func TestCounterService_Apply_UnknownAction(t *testing.T) {
	counters := new(MockCounterRepository)
	gate := &stubGate{decision: ratelimit.Decision{Allowed: true}}
	svc := NewCounterService(counters, gate, disabledAnalytics(), noCache(), quietLogger())

	_, err := svc.Apply(context.Background(), 1, "reset")
	assert.ErrorIs(t, err, apperrors.ErrUnknownAction)
	// the gate must not be consumed by an invalid request
	assert.Equal(t, 0, gate.calls)
	counters.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestCounterService_Apply_RateLimited(t *testing.T) {
	counters := new(MockCounterRepository)
	gate := &stubGate{decision: ratelimit.Decision{Allowed: false, RetryAfter: 7}}
	svc := NewCounterService(counters, gate, disabledAnalytics(), noCache(), quietLogger())

	_, err := svc.Apply(context.Background(), 1, ActionIncrement)

	var limited *apperrors.RateLimitError
	assert.ErrorAs(t, err, &limited)
	assert.Equal(t, 7, limited.RetryAfter)
	counters.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestCounterService_Apply_StoreFailure(t *testing.T) {
	counters := new(MockCounterRepository)
	counters.On("GetOrCreate", mock.Anything, uint(1)).Return(&model.Counter{UserID: 1}, nil)
	counters.On("Add", mock.Anything, uint(1), int64(1)).Return(assert.AnError)

	gate := &stubGate{decision: ratelimit.Decision{Allowed: true}}
	svc := NewCounterService(counters, gate, disabledAnalytics(), noCache(), quietLogger())

	_, err := svc.Apply(context.Background(), 1, ActionIncrement)
	assert.ErrorIs(t, err, assert.AnError)
}
