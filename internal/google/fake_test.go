package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/slotkeeper/internal/store"
)

// fakeGoogle serves the token, userinfo and revoke endpoints.
type fakeGoogle struct {
	srv *httptest.Server

	tokenCalls  atomic.Int32
	revokeCalls atomic.Int32

	mu           sync.Mutex
	tokenStatus  int
	tokenBody    map[string]any
	tokenDelay   time.Duration
	revokeStatus int
	revoked      []string
	emails       map[string]string // access token -> email
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		tokenStatus:  http.StatusOK,
		revokeStatus: http.StatusOK,
		tokenBody: map[string]any{
			"access_token": "refreshed-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		},
		emails: map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		f.mu.Lock()
		status, body, delay := f.tokenStatus, f.tokenBody, f.tokenDelay
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		f.revokeCalls.Add(1)
		_ = r.ParseForm()
		f.mu.Lock()
		f.revoked = append(f.revoked, r.PostForm.Get("token"))
		status := f.revokeStatus
		f.mu.Unlock()
		w.WriteHeader(status)
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		email, ok := f.emails[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"invalid credentials"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "1", "email": email, "verified_email": true})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) setToken(status int, body map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
	f.tokenBody = body
}

func (f *fakeGoogle) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/oauth/google/callback",
		Scopes:       DefaultOAuthScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.srv.URL + "/auth",
			TokenURL:  f.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (f *fakeGoogle) manager(tokens TokenStore, opts ...CredentialOption) *CredentialManager {
	base := []CredentialOption{
		WithHTTPClient(f.srv.Client()),
		WithRevokeURL(f.srv.URL + "/revoke"),
		WithUserinfoEndpoint(f.srv.URL + "/"),
	}
	return NewCredentialManager(f.config(), tokens, append(base, opts...)...)
}

type tokenWrite struct {
	id           int64
	access       string
	refreshToken string
	expiry       time.Time
}

// memTokens records UpdateAccountTokens calls.
type memTokens struct {
	mu     sync.Mutex
	writes []tokenWrite
	err    error
}

func (m *memTokens) UpdateAccountTokens(_ context.Context, id int64, access, refresh string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, tokenWrite{id: id, access: access, refreshToken: refresh, expiry: expiry})
	return nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

var errWriteFailed = errors.New("disk full")

func accountExpiringIn(d time.Duration) *store.Account {
	return &store.Account{
		ID:           7,
		Email:        "owner@example.com",
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		TokenExpiry:  time.Now().Add(d),
		CalendarID:   store.DefaultCalendarID,
		Active:       true,
	}
}
