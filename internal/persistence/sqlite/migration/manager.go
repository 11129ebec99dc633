package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Executor is the database side of a migration run.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	Apply(ctx context.Context, migration Migration) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
}

// Manager applies pending migrations in version order.
type Manager struct {
	executor   Executor
	migrations []Migration
	logger     *slog.Logger
}

// NewManager creates a Manager for the scanned migrations.
func NewManager(executor Executor, migrations []Migration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{executor: executor, migrations: migrations, logger: logger.With("component", "migration")}
}

// Run applies every pending migration. Applied migrations whose checksum changed are
// reported as ErrChecksumMismatch and nothing further is applied.
func (m *Manager) Run(ctx context.Context) error {
	start := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "schema version checked",
		"current_version", status.CurrentVersion,
		"pending", len(status.Pending),
	)

	for i, migration := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"step", i+1,
			"total", len(status.Pending),
		)
		if err := m.executor.Apply(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
	}

	if len(status.Pending) > 0 {
		m.logger.InfoContext(ctx, "migrations completed",
			"applied", len(status.Pending),
			"duration", time.Since(start),
		)
	}
	return nil
}

// Status compares the scanned migrations with those recorded in the database.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to initialize version table: %w", err)
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to load applied migrations: %w", err)
	}

	byVersion := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		byVersion[a.Version] = a
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}

	for _, migration := range m.migrations {
		record, ok := byVersion[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}
