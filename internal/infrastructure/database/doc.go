// Package database manages the embedded SQLite store holding users and
// gateway credentials.
//
// The database file lives on local disk with restrictive permissions; WAL
// mode keeps concurrent readers cheap while the write path stays
// serialised. Schema migrations are embedded in the binary and applied at
// startup, tracked in a schema_migrations table.
package database
