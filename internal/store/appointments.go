package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Appointment is a confirmed booking.
type Appointment struct {
	ID           int64
	EventID      string
	CustomerName string
	Phone        string
	Email        string
	Address      string
	Issue        string
	Start        time.Time
	End          time.Time
	AccountEmail string
	CallID       string
	CreatedAt    time.Time
}

// AppointmentFilter narrows ListAppointments. Zero fields are ignored.
type AppointmentFilter struct {
	AccountEmail string
	From         time.Time
	To           time.Time
	Limit        int
}

const appointmentColumns = `id, event_id, customer_name, phone, email, address, issue, start_time, end_time, account_email, call_id, created_at`

func scanAppointment(row rowScanner) (*Appointment, error) {
	var (
		a       Appointment
		eventID sql.NullString
	)
	if err := row.Scan(&a.ID, &eventID, &a.CustomerName, &a.Phone, &a.Email, &a.Address, &a.Issue,
		&a.Start, &a.End, &a.AccountEmail, &a.CallID, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.EventID = eventID.String
	a.Start = a.Start.UTC()
	a.End = a.End.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// CreateAppointment inserts a and fills in its ID and CreatedAt.
func (s *Store) CreateAppointment(ctx context.Context, a *Appointment) error {
	if !a.Start.Before(a.End) {
		return ErrInvalidAppointment
	}
	a.Start = dbTime(a.Start)
	a.End = dbTime(a.End)
	a.AccountEmail = strings.ToLower(strings.TrimSpace(a.AccountEmail))
	a.CreatedAt = dbTime(s.now())

	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO appointments (event_id, customer_name, phone, email, address, issue, start_time, end_time, account_email, call_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		nullString(a.EventID), a.CustomerName, a.Phone, a.Email, a.Address, a.Issue,
		a.Start, a.End, a.AccountEmail, a.CallID, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

// GetAppointmentByEventID returns the appointment bound to an external event.
func (s *Store) GetAppointmentByEventID(ctx context.Context, eventID string) (*Appointment, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+appointmentColumns+` FROM appointments WHERE event_id = ?`), eventID)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment for event %s: %w", eventID, err)
	}
	return a, nil
}

// ListAppointments returns appointments in start order.
func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	if f.AccountEmail != "" {
		where = append(where, "account_email = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.AccountEmail)))
	}
	if !f.From.IsZero() {
		where = append(where, "end_time > ?")
		args = append(args, dbTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, dbTime(f.To))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// HasOverlap reports whether an appointment for accountEmail intersects
// [start, end). Touching intervals do not overlap.
func (s *Store) HasOverlap(ctx context.Context, accountEmail string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE account_email = ?
			  AND start_time < ?
			  AND end_time > ?
		)`),
		strings.ToLower(strings.TrimSpace(accountEmail)), dbTime(end), dbTime(start),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check appointment overlap: %w", err)
	}
	return exists, nil
}
