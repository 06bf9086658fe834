package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teemow/slotkeeper/internal/calendar"
	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

type busyQuery struct {
	start, end time.Time
}

type fakeCalendar struct {
	mu sync.Mutex

	busy      []slots.BusyPeriod
	busyErr   error
	createErr error
	deleteErr error

	// busyAfterFirst replaces busy from the second query on, simulating a
	// booking that lands between availability and commit.
	busyAfterFirst []slots.BusyPeriod

	queries []busyQuery
	created []calendar.EventInput
	deleted []string
}

func (f *fakeCalendar) BusyPeriods(_ context.Context, _ *store.Account, start, end time.Time) ([]slots.BusyPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, busyQuery{start: start, end: end})
	if f.busyErr != nil {
		return nil, f.busyErr
	}
	if f.busyAfterFirst != nil && len(f.queries) > 1 {
		return f.busyAfterFirst, nil
	}
	return f.busy, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ *store.Account, input calendar.EventInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, input)
	return "evt-" + input.Start.UTC().Format("20060102T1504"), nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ *store.Account, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	return f.deleteErr
}

type fakeStore struct {
	mu sync.Mutex

	account      *store.Account
	appointments []store.Appointment
	// failCreates makes that many CreateAppointment calls fail.
	failCreates int
	createCalls int
	overlapErr  error
}

var errDBDown = errors.New("database is locked")

func (s *fakeStore) GetActiveAccount(context.Context) (*store.Account, error) {
	if s.account == nil {
		return nil, store.ErrNoActiveAccount
	}
	return s.account, nil
}

func (s *fakeStore) HasOverlap(_ context.Context, email string, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapErr != nil {
		return false, s.overlapErr
	}
	for _, a := range s.appointments {
		if a.AccountEmail == email && slots.Overlaps(start, end, a.Start, a.End) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateAppointment(_ context.Context, a *store.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreates > 0 {
		s.failCreates--
		return errDBDown
	}
	a.ID = int64(len(s.appointments) + 1)
	s.appointments = append(s.appointments, *a)
	return nil
}
