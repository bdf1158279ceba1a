package database

import (
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/gorm"
)

//go:embed migrations
var migrationsFS embed.FS

func migrationSource(driver string) (*migrate.EmbedFileSystemMigrationSource, string, error) {
	switch driver {
	case "", "sqlite":
		return &migrate.EmbedFileSystemMigrationSource{
			FileSystem: migrationsFS,
			Root:       "migrations/sqlite",
		}, "sqlite3", nil
	case "postgres":
		return &migrate.EmbedFileSystemMigrationSource{
			FileSystem: migrationsFS,
			Root:       "migrations/postgres",
		}, "postgres", nil
	default:
		return nil, "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

// Migrate applies every pending up migration and returns how many ran.
func Migrate(db *gorm.DB, driver string) (int, error) {
	return runMigrations(db, driver, migrate.Up, 0)
}

// Rollback reverts at most steps migrations.
func Rollback(db *gorm.DB, driver string, steps int) (int, error) {
	return runMigrations(db, driver, migrate.Down, steps)
}

func runMigrations(db *gorm.DB, driver string, direction migrate.MigrationDirection, max int) (int, error) {
	source, dialect, err := migrationSource(driver)
	if err != nil {
		return 0, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get sql database: %w", err)
	}

	applied, err := migrate.ExecMax(sqlDB, dialect, source, direction, max)
	if err != nil {
		return applied, fmt.Errorf("failed to execute migrations: %w", err)
	}

	return applied, nil
}
