package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"tally/internal/errors"
	"tally/internal/model"
)

// MigrateHandler exposes schema migration over HTTP for operators.
type MigrateHandler struct {
	db         *gorm.DB
	adminToken string
}

// NewMigrateHandler creates a new migrate handler. An empty adminToken leaves
// the endpoint open, as in development setups.
func NewMigrateHandler(db *gorm.DB, adminToken string) *MigrateHandler {
	return &MigrateHandler{db: db, adminToken: adminToken}
}

// MigrateResponse reports which tables were migrated.
type MigrateResponse struct {
	Success bool     `json:"success"`
	Tables  []string `json:"tables"`
}

// Migrate godoc
// @Summary Run database migrations
// @Tags admin
// @Produce json
// @Param X-Admin-Token header string false "Admin token, required when ADMIN_TOKEN is set"
// @Success 200 {object} MigrateResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/migrate [post]
func (h *MigrateHandler) Migrate(c echo.Context) error {
	if h.adminToken != "" && c.Request().Header.Get("X-Admin-Token") != h.adminToken {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid admin token",
			Code:  "INVALID_ADMIN_TOKEN",
		})
	}

	err := h.db.WithContext(c.Request().Context()).AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Counter{},
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "migration failed",
			Code:  "MIGRATION_FAILED",
		})
	}
	return c.JSON(http.StatusOK, MigrateResponse{
		Success: true,
		Tables:  []string{"users", "sessions", "counters"},
	})
}
