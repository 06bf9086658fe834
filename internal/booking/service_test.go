package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

var ownerAccount = &store.Account{ID: 1, Email: "owner@example.com", CalendarID: "primary", Active: true}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// newTestService returns a service whose clock is Monday 2024-01-15 07:00
// in New York, two hours before opening.
func newTestService(t *testing.T, cal *fakeCalendar, st *fakeStore) (*Service, time.Time) {
	t.Helper()
	loc := newYork(t)
	now := time.Date(2024, 1, 15, 7, 0, 0, 0, loc)
	rules := slots.Rules{
		Open:     slots.ClockTime{Hour: 9},
		Close:    slots.ClockTime{Hour: 17},
		Days:     []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Duration: time.Hour,
		Location: loc,
	}
	svc := NewService(cal, st, Config{Rules: rules, BusinessName: "Acme Plumbing"},
		WithClock(func() time.Time { return now }))
	return svc, now
}

func TestClampDays(t *testing.T) {
	tests := map[int]int{-3: DefaultDaysAhead, 0: DefaultDaysAhead, 1: 1, 14: 14, 30: 30, 31: 30, 400: 30}
	for in, want := range tests {
		if got := clampDays(in); got != want {
			t.Errorf("clampDays(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestJoinFields(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"name"}, "name"},
		{[]string{"name", "address"}, "name and address"},
		{[]string{"name", "phone number", "address"}, "name, phone number and address"},
	}
	for _, tt := range tests {
		if got := joinFields(tt.in); got != tt.want {
			t.Errorf("joinFields(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
