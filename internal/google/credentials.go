package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/slotkeeper/internal/calendar"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/store"
)

// ErrReauthorizationRequired is returned when an account's refresh token is
// missing or has been rejected. The owner has to reconnect the calendar.
var ErrReauthorizationRequired = errors.New("calendar account needs to be reconnected")

// RefreshMargin is how long before expiry a token is refreshed.
const RefreshMargin = 5 * time.Minute

const defaultRefreshTimeout = 10 * time.Second

// CredentialManager issues access tokens for connected accounts, refreshing
// and persisting them as they near expiry.
type CredentialManager struct {
	config           *oauth2.Config
	tokens           TokenStore
	httpClient       *http.Client
	revokeURL        string
	userinfoEndpoint string
	timeout          time.Duration
	logger           *slog.Logger
	metrics          *instrumentation.Metrics
	now              func() time.Time

	mu    sync.Mutex
	cache map[int64]*oauth2.Token
	group singleflight.Group
}

// CredentialOption configures a CredentialManager.
type CredentialOption func(*CredentialManager)

// WithHTTPClient sets the client used for token, userinfo and revoke calls.
func WithHTTPClient(c *http.Client) CredentialOption {
	return func(m *CredentialManager) { m.httpClient = c }
}

// WithRevokeURL overrides DefaultRevokeURL.
func WithRevokeURL(u string) CredentialOption {
	return func(m *CredentialManager) { m.revokeURL = u }
}

// WithUserinfoEndpoint overrides the userinfo API base URL.
func WithUserinfoEndpoint(u string) CredentialOption {
	return func(m *CredentialManager) { m.userinfoEndpoint = u }
}

// WithRefreshTimeout bounds a single refresh request.
func WithRefreshTimeout(d time.Duration) CredentialOption {
	return func(m *CredentialManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CredentialOption {
	return func(m *CredentialManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) CredentialOption {
	return func(m *CredentialManager) { m.metrics = metrics }
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) CredentialOption {
	return func(m *CredentialManager) { m.now = now }
}

// NewCredentialManager creates a CredentialManager. Refreshed tokens are
// written to tokens.
func NewCredentialManager(config *oauth2.Config, tokens TokenStore, opts ...CredentialOption) *CredentialManager {
	m := &CredentialManager{
		config:    config,
		tokens:    tokens,
		revokeURL: DefaultRevokeURL,
		timeout:   defaultRefreshTimeout,
		logger:    slog.Default(),
		now:       time.Now,
		cache:     make(map[int64]*oauth2.Token),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithComponent(m.logger, "credentials")
	return m
}

// GetValidCredential returns an access token for account that stays valid
// for at least RefreshMargin. Concurrent refreshes of one account share a
// single provider request.
func (m *CredentialManager) GetValidCredential(ctx context.Context, account *store.Account) (*oauth2.Token, error) {
	if account == nil {
		return nil, store.ErrNoActiveAccount
	}

	if token := m.current(account); m.fresh(token) {
		return token, nil
	}

	v, err, shared := m.group.Do(strconv.FormatInt(account.ID, 10), func() (any, error) {
		// Another caller may have refreshed while we waited.
		token := m.current(account)
		if m.fresh(token) {
			return token, nil
		}
		return m.refresh(ctx, account, token)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("shared token refresh", logging.AccountID(account.ID))
	}
	return v.(*oauth2.Token), nil
}

// Invalidate drops the cached token of an account.
func (m *CredentialManager) Invalidate(accountID int64) {
	m.mu.Lock()
	delete(m.cache, accountID)
	m.mu.Unlock()
}

// current returns the newer of the stored and the cached token.
func (m *CredentialManager) current(account *store.Account) *oauth2.Token {
	stored := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       account.TokenExpiry,
	}

	m.mu.Lock()
	cached := m.cache[account.ID]
	m.mu.Unlock()

	if cached == nil || !cached.Expiry.After(stored.Expiry) {
		return stored
	}
	if cached.RefreshToken == "" {
		c := *cached
		c.RefreshToken = stored.RefreshToken
		return &c
	}
	return cached
}

// fresh reports whether token can be used without refreshing. A token
// without expiry never expires.
func (m *CredentialManager) fresh(token *oauth2.Token) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	return m.now().Add(RefreshMargin).Before(token.Expiry)
}

func (m *CredentialManager) refresh(ctx context.Context, account *store.Account, current *oauth2.Token) (*oauth2.Token, error) {
	logger := m.logger.With(logging.AccountID(account.ID), logging.UserHash(account.Email))

	if current.RefreshToken == "" {
		m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		logger.Error("no refresh token stored; account must be reconnected")
		return nil, fmt.Errorf("%w: no refresh token", ErrReauthorizationRequired)
	}

	// Shared by all waiting callers; detached from the first caller's cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	start := time.Now()
	// Refresh token only: oauth2 would otherwise reuse an access token that
	// is inside RefreshMargin but outside its own expiry delta.
	source := m.config.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, m.refreshError(ctx, logger, err, time.Since(start))
	}
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}

	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	m.mu.Lock()
	m.cache[account.ID] = token
	m.mu.Unlock()

	if err := m.tokens.UpdateAccountTokens(ctx, account.ID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		// Still served from the cache.
		logger.Warn("failed to persist refreshed token", logging.Err(err))
	}

	logger.Info("token refreshed",
		logging.Duration(time.Since(start)),
		slog.Time("expiry", token.Expiry))
	return token, nil
}

func (m *CredentialManager) refreshError(ctx context.Context, logger *slog.Logger, err error, took time.Duration) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && grantRejected(re) {
		m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultRevoked)
		logger.Error("refresh token rejected; account must be reconnected",
			slog.String("error_code", re.ErrorCode),
			logging.Duration(took))
		return fmt.Errorf("%w: %s", ErrReauthorizationRequired, refreshErrorCode(re))
	}

	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
	logger.Warn("token refresh failed", logging.Err(err), logging.Duration(took))
	return fmt.Errorf("%w: token refresh: %w", calendar.ErrCalendarUnavailable, err)
}

// grantRejected reports whether the token endpoint refused the refresh token
// itself. Rate limiting and other statuses are treated as transient.
func grantRejected(re *oauth2.RetrieveError) bool {
	if re.ErrorCode == "invalid_grant" {
		return true
	}
	if re.Response == nil {
		return false
	}
	switch re.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return true
	default:
		return false
	}
}

func refreshErrorCode(re *oauth2.RetrieveError) string {
	if re.ErrorCode != "" {
		return re.ErrorCode
	}
	if re.Response != nil {
		return re.Response.Status
	}
	return "rejected"
}
