package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/slotkeeper/internal/google"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/store"
)

// DefaultKeepWarmSchedule runs well inside the refresh margin.
const DefaultKeepWarmSchedule = "@every 15m"

const keepWarmTimeout = 30 * time.Second

// ActiveAccountSource returns the account bookings use.
type ActiveAccountSource interface {
	GetActiveAccount(ctx context.Context) (*store.Account, error)
}

// CredentialSource yields a valid access token, refreshing if needed.
type CredentialSource interface {
	GetValidCredential(ctx context.Context, account *store.Account) (*oauth2.Token, error)
}

// KeepWarm keeps the active account's access token fresh.
type KeepWarm struct {
	accounts ActiveAccountSource
	creds    CredentialSource
	logger   *slog.Logger
}

// NewKeepWarm returns the token keep-warm job.
func NewKeepWarm(accounts ActiveAccountSource, creds CredentialSource, logger *slog.Logger) *KeepWarm {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeepWarm{
		accounts: accounts,
		creds:    creds,
		logger:   logging.WithOperation(logger, "keep_warm"),
	}
}

// Name implements Job.
func (k *KeepWarm) Name() string { return "token-keep-warm" }

// Run refreshes the active account's credential if it is near expiry.
// Having no active account is not an error.
func (k *KeepWarm) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, keepWarmTimeout)
	defer cancel()

	account, err := k.accounts.GetActiveAccount(ctx)
	if errors.Is(err, store.ErrNoActiveAccount) {
		k.logger.Debug("no active calendar account, skipping")
		return nil
	}
	if err != nil {
		k.logger.Warn("failed to load active account", logging.Err(err))
		return err
	}

	logger := k.logger.With(logging.AccountID(account.ID), logging.UserHash(account.Email))
	tok, err := k.creds.GetValidCredential(ctx, account)
	switch {
	case errors.Is(err, google.ErrReauthorizationRequired):
		logger.Error("calendar account must be reconnected, bookings will fail until then", logging.Err(err))
		return err
	case err != nil:
		logger.Warn("credential refresh failed", logging.Err(err))
		return err
	}

	logger.Debug("credential is fresh", "expires_in", time.Until(tok.Expiry).Truncate(time.Second).String())
	return nil
}
