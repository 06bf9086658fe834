package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCalendarID addresses the account's primary calendar.
const DefaultCalendarID = "primary"

// Account is a connected external calendar identity.
type Account struct {
	ID           int64
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CalendarID   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountInput carries the fields written by an OAuth callback.
type AccountInput struct {
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CalendarID   string
}

const accountColumns = `id, email, access_token, refresh_token, token_expiry, calendar_id, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a      Account
		expiry sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Email, &a.AccessToken, &a.RefreshToken, &expiry,
		&a.CalendarID, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if expiry.Valid {
		a.TokenExpiry = expiry.Time.UTC()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

// UpsertAccount inserts an account or refreshes the tokens of the existing
// account with the same email. A new account becomes active when no other
// account is. An empty refresh token keeps the stored one, since providers
// only issue it on first consent.
func (s *Store) UpsertAccount(ctx context.Context, in AccountInput) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("account email is required")
	}
	calendarID := in.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var activeCount int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM calendar_accounts WHERE active = ? AND email <> ?`), true, email).Scan(&activeCount); err != nil {
		return nil, fmt.Errorf("failed to count active accounts: %w", err)
	}

	now := dbTime(s.now())
	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO calendar_accounts (email, access_token, refresh_token, token_expiry, calendar_id, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN calendar_accounts.refresh_token ELSE excluded.refresh_token END,
			token_expiry = excluded.token_expiry,
			updated_at = excluded.updated_at`),
		email, in.AccessToken, in.RefreshToken, nullTime(in.TokenExpiry), calendarID, activeCount == 0, now, now); err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	a, err := scanAccount(tx.QueryRowContext(ctx, s.q(`SELECT `+accountColumns+` FROM calendar_accounts WHERE email = ?`), email))
	if err != nil {
		return nil, fmt.Errorf("failed to read upserted account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account upsert: %w", err)
	}
	return a, nil
}

// GetAccount returns the account with the given id.
func (s *Store) GetAccount(ctx context.Context, id int64) (*Account, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+accountColumns+` FROM calendar_accounts WHERE id = ?`), id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return a, nil
}

// GetAccountByEmail returns the account with the given email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+accountColumns+` FROM calendar_accounts WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return a, nil
}

// GetActiveAccount returns the single active account or ErrNoActiveAccount.
func (s *Store) GetActiveAccount(ctx context.Context) (*Account, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+accountColumns+` FROM calendar_accounts WHERE active = ?`), true)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active account: %w", err)
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by id.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM calendar_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ActivateAccount makes id the only active account. Deactivate-all and
// activate-one run in a single transaction; an unknown id changes nothing.
func (s *Store) ActivateAccount(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, s.q(`SELECT EXISTS(SELECT 1 FROM calendar_accounts WHERE id = ?)`), id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up account %d: %w", id, err)
	}
	if !exists {
		return ErrNotFound
	}

	now := dbTime(s.now())
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE calendar_accounts SET active = ?, updated_at = ? WHERE active = ?`), false, now, true); err != nil {
		return fmt.Errorf("failed to deactivate accounts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE calendar_accounts SET active = ?, updated_at = ? WHERE id = ?`), true, now, id); err != nil {
		return fmt.Errorf("failed to activate account %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

// DeactivateAccount clears the active flag of id.
func (s *Store) DeactivateAccount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE calendar_accounts SET active = ?, updated_at = ? WHERE id = ?`),
		false, dbTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account %d: %w", id, err)
	}
	return expectRow(res)
}

// UpdateAccountTokens stores a refreshed credential. An empty refresh token
// keeps the stored one.
func (s *Store) UpdateAccountTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE calendar_accounts
		SET access_token = ?,
			refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
			token_expiry = ?,
			updated_at = ?
		WHERE id = ?`),
		accessToken, refreshToken, refreshToken, nullTime(expiry), dbTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update tokens for account %d: %w", id, err)
	}
	return expectRow(res)
}

// DeleteAccount removes the account row.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM calendar_accounts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
