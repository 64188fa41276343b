// Package sqlite provides a SQLite-based implementation of the driven
// storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database file backs three stores:
//
//   - ConfigurationStore: sync configurations, one JSON document per id
//   - LogStore: the persisted activity log
//   - SchedulerStore: recurring task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-sync/data/sync.db
//
// # Thread Safety
//
// The store holds a single connection, so writes are serialized and a
// configuration update reads and writes inside one transaction.
package sqlite
