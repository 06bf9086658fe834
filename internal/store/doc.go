// Package store persists calendar accounts and confirmed appointments.
//
// Two database/sql drivers are supported: SQLite (mattn/go-sqlite3, the
// default for single-host installs and tests) and PostgreSQL through the pgx
// stdlib adapter. Queries are written with "?" placeholders and rewritten
// for PostgreSQL.
//
// At most one account is active at a time. ActivateAccount performs the
// switch in one transaction and a partial unique index backs it up.
//
// All instants are stored in UTC with second precision.
package store
