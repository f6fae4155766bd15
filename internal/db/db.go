package db

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/maintdesk/backend/internal/config"
	"github.com/example/maintdesk/backend/internal/models"
)

// New creates a new GORM database connection using the provided DSN.
func New(dsn, logLevel string) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(ParseLogLevel(logLevel))
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(config.MustGetInt("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(config.MustGetInt("DB_MAX_IDLE_CONNS", 5))

	log.Println("connected to database")
	return db, nil
}

// AutoMigrate creates or updates the tables of every persisted model.
// Tenants and complaints go first so the foreign keys resolve.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.Complaint{},
		&models.Job{},
		&models.Material{},
		&models.Staff{},
	)
}

// ParseLogLevel maps a config string to a gorm log level, defaulting to warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
