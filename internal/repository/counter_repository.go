package repository

import (
	"context"

	"gorm.io/gorm"

	"tally/internal/model"
)

// CounterRepository defines persistence operations for counters.
type CounterRepository interface {
	// GetOrCreate returns the user's counter, creating a zero-valued row on
	// first access.
	GetOrCreate(ctx context.Context, userID uint) (*model.Counter, error)
	// Add applies the delta as a single UPDATE statement so concurrent
	// mutations of the same row serialize at the store instead of racing
	// through a read-modify-write cycle.
	Add(ctx context.Context, userID uint, delta int64) error
	FindByUserID(ctx context.Context, userID uint) (*model.Counter, error)
}

type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository builds a GORM-backed repository.
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

func (r *counterRepository) GetOrCreate(ctx context.Context, userID uint) (*model.Counter, error) {
	var counter model.Counter
	err := r.db.WithContext(ctx).
		Where(model.Counter{UserID: userID}).
		FirstOrCreate(&counter).Error
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

func (r *counterRepository) Add(ctx context.Context, userID uint, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Counter{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"value": gorm.Expr("value + ?", delta)}).Error
}

func (r *counterRepository) FindByUserID(ctx context.Context, userID uint) (*model.Counter, error) {
	var counter model.Counter
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&counter).Error; err != nil {
		return nil, err
	}
	return &counter, nil
}
