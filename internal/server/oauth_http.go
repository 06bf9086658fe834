package server

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/slotkeeper/internal/logging"
)

// DefaultStateTTL is how long an OAuth state nonce stays valid.
const DefaultStateTTL = 10 * time.Minute

// stateStore issues single-use OAuth state nonces.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &stateStore{states: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// issue returns a fresh nonce and drops expired ones.
func (s *stateStore) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for state, expires := range s.states {
		if now.After(expires) {
			delete(s.states, state)
		}
	}
	state := uuid.NewString()
	s.states[state] = now.Add(s.ttl)
	return state
}

// consume reports whether state was issued and is unexpired, and
// invalidates it either way.
func (s *stateStore) consume(state string) bool {
	if state == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.states[state]
	delete(s.states, state)
	return ok && !s.now().After(expires)
}

// OAuthHandlers serve the calendar account connect flow.
type OAuthHandlers struct {
	connector Connector
	states    *stateStore
	logger    *slog.Logger
}

// NewOAuthHandlers returns handlers for /oauth/google/start and
// /oauth/google/callback.
func NewOAuthHandlers(connector Connector, logger *slog.Logger) *OAuthHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &OAuthHandlers{
		connector: connector,
		states:    newStateStore(DefaultStateTTL),
		logger:    logging.WithComponent(logger, "oauth"),
	}
}

// Start redirects the browser to Google's consent screen.
func (h *OAuthHandlers) Start(w http.ResponseWriter, r *http.Request) {
	state := h.states.issue()
	http.Redirect(w, r, h.connector.AuthURL(state), http.StatusFound)
}

// Callback completes the flow and reports the connected account.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		h.logger.Warn("authorization denied", "error", e)
		writePage(w, http.StatusBadRequest, "Authorization failed", "Google returned: "+e)
		return
	}
	if !h.states.consume(q.Get("state")) {
		h.logger.Warn("invalid or expired oauth state")
		writePage(w, http.StatusBadRequest, "Authorization failed", "The sign-in link expired or was already used. Please start again.")
		return
	}
	code := q.Get("code")
	if code == "" {
		writePage(w, http.StatusBadRequest, "Authorization failed", "No authorization code was returned.")
		return
	}

	account, err := h.connector.Complete(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to connect calendar account", logging.Err(err))
		writePage(w, http.StatusBadGateway, "Authorization failed", "The calendar account could not be connected. Please try again.")
		return
	}

	h.logger.Info("calendar account connected", logging.AccountID(account.ID), logging.UserHash(account.Email))
	status := "It is not active yet. Activate it with: slotkeeper accounts activate " + fmt.Sprint(account.ID)
	if account.Active {
		status = "Bookings will be written to this calendar."
	}
	writePage(w, http.StatusOK, "Calendar connected", account.Email+" is connected. "+status)
}

func writePage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>\n",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(body))
}

// validateHTTPSRequirement ensures OAuth redirect URLs use HTTPS.
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1)
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
