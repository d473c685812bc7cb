package database

import (
	"fmt"
	"time"

	"chargedesk/internal/config"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection opens the connection pool. Driver errors are translated so
// unique violations surface as gorm.ErrDuplicatedKey.
func NewConnection(cfg config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if logLevel == "debug" {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates or updates the schema. Charge ranges cascade with their
// transaction type.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.Permission{},
		&model.TransactionType{},
		&model.ChargeRange{},
		&model.AuditLog{},
		&model.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	logger.Info("Database schema migrated")
	return nil
}
