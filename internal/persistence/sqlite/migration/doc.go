// Package migration applies versioned schema changes to the rehearsal scheduler's
// SQLite database.
//
// Migration files are read from an fs.FS (normally an embedded directory) and follow
// the naming convention {version}_{description}.sql, e.g. "0001_initial_schema.sql".
// Each file runs in its own transaction and is recorded in the schema_migrations table
// together with its checksum, so an edited file that was already applied is reported
// instead of silently skipped.
//
// Example usage:
//
//	migrations, err := migration.Scan(schemaFS, "migrations")
//	if err != nil {
//		return err
//	}
//	manager := migration.NewManager(migration.NewSQLiteExecutor(db), migrations, logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
