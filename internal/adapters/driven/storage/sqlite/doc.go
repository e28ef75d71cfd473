// Package sqlite provides the SQLite-backed run history ledger.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Each orchestration run is stored as one row in runs with
// its steps in run_steps and its non-secret outputs in run_outputs.
//
// # Schema
//
// The schema is managed through versioned migrations in migrations/. Each
// migration is a pair of .up.sql and .down.sql files; applied versions are
// recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.stackup/data/history.db
// ($STACKUP_HOME/data/history.db when set).
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
