// Package postgres provides the PostgreSQL access layer for the listings
// catalog service, built on GORM.
//
// The Postgres type wraps gorm.DB with a read-write mutex so a background
// retry loop can replace a broken connection while queries hold read
// locks. Connection health is checked every 10 seconds; failures trigger
// reconnection attempts until the application shuts down.
//
// Queries are built through the fluent QueryBuilder returned by Query,
// which releases its lock when a terminal method (Find, First, Count,
// Pluck, Scan) or Done runs. Multi-statement writes go through
// Transaction, and schema management through Migrate.
//
// TranslateError maps GORM and pgconn errors onto the package's sentinel
// errors so callers never match on driver-specific error types.
//
// Configuration is environment driven (DATABASE_HOST, DATABASE_PORT,
// DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_SSL_MODE and
// pool knobs); the FXModule wires construction and the monitor/retry
// lifecycle into the fx application.
package postgres
