package postgres

import (
	"embed"
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationRunner applies the embedded schema migrations
type MigrationRunner struct {
	migrate *migrate.Migrate
	logger  zerolog.Logger
}

func NewMigrationRunner(databaseURL string, logger zerolog.Logger) (*MigrationRunner, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &MigrationRunner{migrate: m, logger: logger}, nil
}

// Up runs all pending migrations
func (mr *MigrationRunner) Up() error {
	if err := mr.migrate.Up(); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			mr.logger.Info().Msg("no pending migrations")
			return nil
		}
		return fmt.Errorf("failed to run migrations up: %w", err)
	}
	mr.logVersion("migrations applied")
	return nil
}

// Down rolls back the given number of migrations
func (mr *MigrationRunner) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	if err := mr.migrate.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			mr.logger.Info().Msg("no migrations to roll back")
			return nil
		}
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	mr.logVersion("migrations rolled back")
	return nil
}

func (mr *MigrationRunner) logVersion(msg string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.logger.Warn().Err(err).Msg("could not read migration version")
		return
	}
	mr.logger.Info().Uint("version", version).Bool("dirty", dirty).Msg(msg)
}

func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close migration database: %w", dbErr)
	}
	return nil
}
