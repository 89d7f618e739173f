// Package database sets up the gorm connection and schema.
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"idea-forge/internal/config"
	"idea-forge/pkg/models"
)

// Connect opens the database: postgres when DATABASE_URL is set,
// otherwise a local pure-Go sqlite file, and runs migrations.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if !cfg.IsProduction() {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	if cfg.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.Session{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// ConnectTest opens an in-memory sqlite database for tests.
func ConnectTest() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Session{}); err != nil {
		return nil, err
	}
	return db, nil
}
