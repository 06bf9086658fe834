package store

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS calendar_accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	access_token TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry DATETIME,
	calendar_id TEXT NOT NULL DEFAULT 'primary',
	active BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_calendar_accounts_single_active
	ON calendar_accounts(active) WHERE active = 1`,
	`CREATE TABLE IF NOT EXISTS appointments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT UNIQUE,
	customer_name TEXT NOT NULL,
	phone TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL,
	issue TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	account_email TEXT NOT NULL,
	call_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	CHECK (start_time < end_time)
)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_account_start
	ON appointments(account_email, start_time)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS calendar_accounts (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	access_token TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry TIMESTAMPTZ,
	calendar_id TEXT NOT NULL DEFAULT 'primary',
	active BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_calendar_accounts_single_active
	ON calendar_accounts(active) WHERE active`,
	`CREATE TABLE IF NOT EXISTS appointments (
	id BIGSERIAL PRIMARY KEY,
	event_id TEXT UNIQUE,
	customer_name TEXT NOT NULL,
	phone TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL,
	issue TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	account_email TEXT NOT NULL,
	call_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	CHECK (start_time < end_time)
)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_account_start
	ON appointments(account_email, start_time)`,
}
