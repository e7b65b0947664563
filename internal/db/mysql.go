package db

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL returns a connected GORM DB instance with tracing instrumentation,
// so every query shows up as a child span of the request that issued it.
func NewMySQL(dsn string) (*gorm.DB, error) {
	// TranslateError maps driver errors (e.g. MySQL 1062) onto gorm
	// sentinels like gorm.ErrDuplicatedKey, which the services match on.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("install otelgorm: %w", err)
	}
	return db, nil
}
