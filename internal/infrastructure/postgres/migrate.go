package postgres

import (
	"database/sql"
	"embed"
	"errors"

	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/fastygo/productsync/internal/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations brings the ledger schema up to date when enabled in configuration.
func RunMigrations(cfg config.LedgerConfig, logger *zap.Logger) error {
	if !cfg.PostgresMigrate {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlDB, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: "productsync_migrations"})
	if err != nil {
		return err
	}

	files, err := migrationSource()
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", files, "postgres", driver)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	logger.Info("ledger migrations applied")
	return nil
}

func migrationSource() (source.Driver, error) {
	return iofs.New(migrationFiles, "migrations")
}
