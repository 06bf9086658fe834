package google

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/store"
)

// Connector runs the account connect, activate and disconnect flows.
type Connector struct {
	credentials *CredentialManager
	accounts    AccountStore
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// NewConnector creates a Connector.
func NewConnector(credentials *CredentialManager, accounts AccountStore, logger *slog.Logger, metrics *instrumentation.Metrics) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		credentials: credentials,
		accounts:    accounts,
		logger:      logging.WithComponent(logger, "connector"),
		metrics:     metrics,
	}
}

// AuthURL returns the consent URL for state.
func (c *Connector) AuthURL(state string) string {
	return c.credentials.AuthCodeURL(state)
}

// Complete finishes an OAuth callback: it exchanges code, identifies the
// account and stores it. The first connected account becomes active.
func (c *Connector) Complete(ctx context.Context, code string) (*store.Account, error) {
	logger := logging.WithOperation(c.logger, "connect")

	token, err := c.credentials.Exchange(ctx, code)
	if err != nil {
		c.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		logger.Warn("code exchange failed", logging.Err(err))
		return nil, err
	}

	email, err := c.credentials.AccountEmail(ctx, token)
	if err != nil {
		c.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		logger.Warn("account lookup failed", logging.Err(err))
		return nil, err
	}

	account, err := c.accounts.UpsertAccount(ctx, store.AccountInput{
		Email:        email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
	})
	if err != nil {
		c.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to store account: %w", err)
	}
	c.credentials.Invalidate(account.ID)

	if account.RefreshToken == "" {
		logger.Warn("provider issued no refresh token; the account will need reconnecting when the access token expires",
			logging.UserHash(email))
	}

	c.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	logger.Info("calendar account connected",
		logging.AccountID(account.ID),
		logging.UserHash(email),
		slog.Bool("active", account.Active))
	return account, nil
}

// Activate makes id the only active account.
func (c *Connector) Activate(ctx context.Context, id int64) error {
	if err := c.accounts.ActivateAccount(ctx, id); err != nil {
		return fmt.Errorf("failed to activate account %d: %w", id, err)
	}
	c.logger.Info("calendar account activated", logging.AccountID(id))
	return nil
}

// Disconnect revokes the account's tokens and deletes it. A failed
// revocation does not stop the deletion.
func (c *Connector) Disconnect(ctx context.Context, id int64) error {
	account, err := c.accounts.GetAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load account %d: %w", id, err)
	}

	token := account.RefreshToken
	if token == "" {
		token = account.AccessToken
	}
	c.credentials.Revoke(ctx, token)
	c.credentials.Invalidate(id)

	if err := c.accounts.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	c.logger.Info("calendar account disconnected",
		logging.AccountID(id),
		logging.UserHash(account.Email))
	return nil
}
