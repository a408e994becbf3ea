package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"lookupdesk/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var DB *sql.DB

func InitDB(dataSourceName string) error {
	var err error
	dbDir := filepath.Dir(dataSourceName)
	if dbDir != "." && dbDir != "" {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			logger.Error("Failed to create database directory %s: %v", dbDir, err)
			return fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	if DB != nil {
		DB.Close()
	}
	DB, err = sql.Open("sqlite3", dataSourceName+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		logger.Error("Failed to open database: %v", err)
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err = DB.Ping(); err != nil {
		logger.Error("Failed to connect to database: %v", err)
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, fmt.Sprintf("sqlite3://%s", dataSourceName+"?_foreign_keys=on"))
	if err != nil {
		logger.Error("Failed to initialize migrations: %v", err)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	logger.Info("Applying database migrations...")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Failed to apply migrations: %v", err)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully (or no changes).")
	return nil
}

// Close releases the global handle.
func Close() error {
	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}
