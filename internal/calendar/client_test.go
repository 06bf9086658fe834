package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/slotkeeper/internal/store"
)

type staticCreds struct {
	token *oauth2.Token
	err   error
}

func (s staticCreds) GetValidCredential(context.Context, *store.Account) (*oauth2.Token, error) {
	return s.token, s.err
}

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

type fakeCalendar struct {
	mu       sync.Mutex
	requests []recorded
	handler  http.HandlerFunc
}

func (f *fakeCalendar) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newFake(t *testing.T, handler http.HandlerFunc) (*fakeCalendar, *Gateway) {
	t.Helper()
	f := &fakeCalendar{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		f.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	gw := NewGateway(
		staticCreds{token: &oauth2.Token{AccessToken: "access-1", TokenType: "Bearer"}},
		WithEndpoint(srv.URL+"/"),
		WithHTTPClient(srv.Client()),
		WithTimeout(2*time.Second),
	)
	return f, gw
}

var testAccount = &store.Account{ID: 1, Email: "owner@example.com", CalendarID: "primary", Active: true}

func TestBusyPeriods(t *testing.T) {
	f, gw := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"kind":"calendar#freeBusy","calendars":{"primary":{"busy":[
			{"start":"2024-01-15T15:00:00Z","end":"2024-01-15T16:00:00Z"},
			{"start":"2024-01-15T18:30:00Z","end":"2024-01-15T19:00:00Z"}]}}}`)
	})

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	busy, err := gw.BusyPeriods(context.Background(), testAccount, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.True(t, busy[0].Start.Equal(time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)))
	assert.True(t, busy[1].End.Equal(time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC)))

	req := f.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/freeBusy", req.path)
	assert.Equal(t, "Bearer access-1", req.auth)

	var body struct {
		TimeMin string `json:"timeMin"`
		TimeMax string `json:"timeMax"`
		Items   []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(req.body), &body))
	assert.Equal(t, "2024-01-15T00:00:00Z", body.TimeMin)
	assert.Equal(t, "2024-01-16T00:00:00Z", body.TimeMax)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "primary", body.Items[0].ID)
}

func TestNewGateway_DefaultClientReusesConnections(t *testing.T) {
	var newConns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"kind":"calendar#freeBusy","calendars":{"primary":{"busy":[]}}}`)
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			newConns.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	gw := NewGateway(
		staticCreds{token: &oauth2.Token{AccessToken: "access-1", TokenType: "Bearer"}},
		WithEndpoint(srv.URL+"/"),
	)
	require.NotNil(t, gw.httpClient)
	transport, ok := gw.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Positive(t, transport.IdleConnTimeout, "idle connections are eventually closed")

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		_, err := gw.BusyPeriods(context.Background(), testAccount, start, start.Add(24*time.Hour))
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, newConns.Load(), int32(2), "sequential calls share keep-alive connections")
}

func TestBusyPeriods_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"error":{"code":500,"message":"backend error"}}`)
			},
		},
		{
			name: "per-calendar error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"calendars":{"primary":{"errors":[{"domain":"global","reason":"notFound"}]}}}`)
			},
		},
		{
			name: "calendar missing from response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"calendars":{}}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, gw := newFake(t, tt.handler)
			start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
			_, err := gw.BusyPeriods(context.Background(), testAccount, start, start.Add(time.Hour))
			assert.ErrorIs(t, err, ErrCalendarUnavailable)
		})
	}
}

func TestBusyPeriods_Timeout(t *testing.T) {
	release := make(chan struct{})
	_, gw := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	gw.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := gw.BusyPeriods(context.Background(), testAccount, start, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrCalendarUnavailable)
}

func TestCredentialErrorsPassThrough(t *testing.T) {
	errReauth := errors.New("reauthorization required")
	gw := NewGateway(staticCreds{err: errReauth}, WithEndpoint("http://127.0.0.1:1/"))

	_, err := gw.BusyPeriods(context.Background(), testAccount, time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, errReauth)
	assert.NotErrorIs(t, err, ErrCalendarUnavailable)

	_, err = gw.CreateEvent(context.Background(), testAccount, EventInput{Summary: "x"})
	assert.ErrorIs(t, err, errReauth)
}

func TestCreateEvent(t *testing.T) {
	f, gw := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"evt-123","status":"confirmed"}`)
	})

	start := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	id, err := gw.CreateEvent(context.Background(), testAccount, EventInput{
		Summary:   "Service: leaking faucet",
		Location:  "1 Main St",
		Start:     start,
		End:       start.Add(time.Hour),
		TimeZone:  "America/New_York",
		Attendees: []string{"jane@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-123", id)

	req := f.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/calendars/primary/events", req.path)
	assert.Contains(t, req.query, "sendUpdates=all")
	assert.Contains(t, req.body, `"dateTime":"2024-01-15T14:00:00Z"`)
	assert.Contains(t, req.body, `"timeZone":"America/New_York"`)
	assert.Contains(t, req.body, `"email":"jane@example.com"`)
}

func TestCreateEvent_NoAttendeeDoesNotNotify(t *testing.T) {
	f, gw := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"evt-1"}`)
	})

	start := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	_, err := gw.CreateEvent(context.Background(), testAccount, EventInput{Summary: "x", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.NotContains(t, f.last().query, "sendUpdates")
	assert.NotContains(t, f.last().body, "attendees")
}

func TestCreateEvent_ProviderError(t *testing.T) {
	_, gw := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"code":503,"message":"unavailable"}}`)
	})

	_, err := gw.CreateEvent(context.Background(), testAccount, EventInput{Summary: "x", Start: time.Now(), End: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, ErrCalendarUnavailable)
}

func TestUpdateEvent_Patches(t *testing.T) {
	f, gw := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"evt-1"}`)
	})

	err := gw.UpdateEvent(context.Background(), testAccount, "evt-1", EventInput{Description: "gate code 1234"})
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "/calendars/primary/events/evt-1", req.path)
	assert.Contains(t, req.body, "gate code 1234")
	assert.NotContains(t, req.body, "dateTime")
}

func TestDeleteEvent(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "deleted", status: http.StatusNoContent},
		{name: "already gone", status: http.StatusGone},
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, gw := newFake(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.status >= 400 {
					_, _ = io.WriteString(w, `{"error":{"message":"`+http.StatusText(tt.status)+`"}}`)
				}
			})

			err := gw.DeleteEvent(context.Background(), testAccount, "evt-9")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCalendarUnavailable)
			} else {
				assert.NoError(t, err)
			}
			req := f.last()
			assert.Equal(t, http.MethodDelete, req.method)
			assert.True(t, strings.HasSuffix(req.path, "/events/evt-9"))
		})
	}
}

func TestToEvent_SkipsZeroFields(t *testing.T) {
	ev := toEvent(EventInput{Summary: "only summary", Attendees: []string{""}})
	assert.Equal(t, "only summary", ev.Summary)
	assert.Nil(t, ev.Start)
	assert.Nil(t, ev.End)
	assert.Empty(t, ev.Attendees)
	assert.False(t, notifiesAttendees(ev))
}
