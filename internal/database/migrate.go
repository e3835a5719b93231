package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rickgao/bankrates/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateURL converts a connection config to the URL scheme understood by the
// golang-migrate pgx/v5 driver.
func MigrateURL(cfg config.DBConfig) string {
	return "pgx5" + strings.TrimPrefix(BuildConnString(cfg), "postgres")
}

// Migrate applies all pending up migrations. It is a no-op when the schema is
// already current.
func Migrate(cfg config.DBConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(cfg))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	upErr := m.Up()

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("no new migrations to apply")
		return nil
	}
	if upErr != nil {
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	logger.Info("migrations applied")
	return nil
}
