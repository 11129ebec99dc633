package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/rehearsal-scheduler/internal/persistence"
	"github.com/example/rehearsal-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// Storage bundles the SQLite repositories behind one connection pool.
type Storage struct {
	*UserRepository
	*RehearsalRepository
	*AuthSessionRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

var (
	_ persistence.UserRepository        = (*Storage)(nil)
	_ persistence.RehearsalRepository   = (*Storage)(nil)
	_ persistence.AuthSessionRepository = (*Storage)(nil)
)

// Open connects to the database at dsn with the default PRAGMA settings.
func Open(dsn string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn), logger)
}

// OpenWithConfig connects using an explicit SQLite configuration.
func OpenWithConfig(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return NewStorage(pool, logger), nil
}

// NewStorage builds a Storage over an existing pool.
func NewStorage(pool *ConnectionPool, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		UserRepository:        NewUserRepository(pool),
		RehearsalRepository:   NewRehearsalRepository(pool),
		AuthSessionRepository: NewAuthSessionRepository(pool),
		pool:                  pool,
		logger:                logger,
	}
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	migrations, err := migration.Scan(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to scan migrations: %w", err)
	}
	manager := migration.NewManager(migration.NewSQLiteExecutor(s.pool.DB()), migrations, s.logger)
	return manager.Run(ctx)
}
