package model

import "time"

// Counter holds the per-user tally. One row per user, created lazily on
// first access.
type Counter struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	User      User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
