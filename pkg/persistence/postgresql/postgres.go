// Package postgresql implements the execution repository on PostgreSQL.
//
// Execution and stage bodies are stored serialized, optionally compressed.
// Stages live in their own table and are fetched lazily, in batches, when an
// execution graph is mapped back into memory.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/edgarulg/orca/pkg/config"
)

// Repository implements persistence.ExecutionRepository on PostgreSQL.
type Repository struct {
	db     *sql.DB
	cfg    config.Config
	logger *slog.Logger
}

// NewRepository connects to the database, runs migrations and returns the
// repository.
func NewRepository(ctx context.Context, logger *slog.Logger, databaseURL string, cfg config.Config) (*Repository, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := newMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Repository{
		db:     database,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close(ctx context.Context) error {
	if r.db != nil {
		err := r.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (r *Repository) HealthCheck(ctx context.Context) error {
	err := r.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
