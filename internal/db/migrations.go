package db

import (
	"fmt"

	"gorm.io/gorm"

	"incident-dashboard/internal/repository"
)

// Partial index backing the unresolved filter. Postgres and SQLite only;
// MySQL has neither partial indexes nor CREATE INDEX IF NOT EXISTS.
var migrationStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_incidents_unresolved_ts_start
		ON incidents (ts_start DESC) WHERE resolved = false;`,
}

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(repository.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	switch gdb.Dialector.Name() {
	case "postgres", "sqlite":
		return runMigrations(gdb)
	default:
		return nil
	}
}

func runMigrations(gdb *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
