// Package database owns the bridge's SQLite file: opening it with WAL mode
// and a single-connection pool, and applying embedded schema migrations.
//
// Migrations are forward-only. Each file is named
// YYYYMMDD_HHMMSS_description.up.sql and new columns must be nullable or
// carry a default, so an older binary can still read a newer schema.
package database
