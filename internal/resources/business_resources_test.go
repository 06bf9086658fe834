package resources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

type fakeStore struct {
	account *store.Account
	appts   []store.Appointment
	err     error
	filter  store.AppointmentFilter
}

func (f *fakeStore) GetActiveAccount(context.Context) (*store.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.account == nil {
		return nil, store.ErrNoActiveAccount
	}
	return f.account, nil
}

func (f *fakeStore) ListAppointments(_ context.Context, filter store.AppointmentFilter) ([]store.Appointment, error) {
	f.filter = filter
	return f.appts, f.err
}

func readRequest(uri string) mcp.ReadResourceRequest {
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return req
}

func textOf(t *testing.T, contents []mcp.ResourceContents) string {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	return text.Text
}

func testBusiness(t *testing.T, st Store) Business {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return Business{
		Name: "Acme Plumbing",
		Rules: slots.Rules{
			Open:     slots.ClockTime{Hour: 9},
			Close:    slots.ClockTime{Hour: 17},
			Days:     []time.Weekday{time.Monday, time.Friday},
			Duration: time.Hour,
			Location: loc,
		},
		Store: st,
		Now:   func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRegisterBusinessResources(t *testing.T) {
	assert.Error(t, RegisterBusinessResources(nil, Business{Store: &fakeStore{}}))
	assert.Error(t, RegisterBusinessResources(mcpserver.NewMCPServer("test", "1.0.0"), Business{}))
	assert.NoError(t, RegisterBusinessResources(mcpserver.NewMCPServer("test", "1.0.0"), testBusiness(t, &fakeStore{})))
}

func TestHoursData(t *testing.T) {
	contents, err := jsonContents(URIBusinessHours, hoursData(testBusiness(t, &fakeStore{})))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, contents)), &got))
	assert.Equal(t, "America/New_York", got["timezone"])
	assert.Equal(t, "09:00", got["open"])
	assert.Equal(t, "17:00", got["close"])
	assert.Equal(t, []interface{}{"Monday", "Friday"}, got["days"])
	assert.Equal(t, float64(60), got["slotDurationMinutes"])
	assert.Equal(t, float64(slots.DefaultLeadTime/time.Minute), got["leadTimeMinutes"])
}

func TestHandleCalendarAccount(t *testing.T) {
	tests := []struct {
		name          string
		store         *fakeStore
		wantErr       bool
		wantConnected bool
	}{
		{name: "not connected", store: &fakeStore{}},
		{
			name:          "connected",
			store:         &fakeStore{account: &store.Account{Email: "owner@example.com", CalendarID: "primary", AccessToken: "secret", RefreshToken: "refresh"}},
			wantConnected: true,
		},
		{name: "store failure", store: &fakeStore{err: errors.New("db down")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents, err := handleCalendarAccount(context.Background(), readRequest(URICalendarAccount), testBusiness(t, tt.store))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			text := textOf(t, contents)
			assert.NotContains(t, text, "secret")
			var got map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(text), &got))
			assert.Equal(t, tt.wantConnected, got["connected"])
		})
	}
}

func TestHandleUpcomingAppointments(t *testing.T) {
	st := &fakeStore{appts: []store.Appointment{{
		EventID:      "evt-1",
		CustomerName: "Jane Doe",
		Issue:        "Leaky faucet",
		Start:        time.Date(2024, 1, 16, 14, 0, 0, 0, time.UTC),
		End:          time.Date(2024, 1, 16, 15, 0, 0, 0, time.UTC),
	}}}
	b := testBusiness(t, st)

	contents, err := handleUpcomingAppointments(context.Background(), readRequest(URIUpcomingAppointments), b)
	require.NoError(t, err)

	text := textOf(t, contents)
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "evt-1@slotkeeper")
	assert.Equal(t, b.Now(), st.filter.From)
	assert.Equal(t, b.Now().Add(upcomingWindow), st.filter.To)
}
