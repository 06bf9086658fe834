package google

import (
	"context"
	"time"

	"github.com/teemow/slotkeeper/internal/store"
)

// TokenStore persists refreshed tokens for an account.
type TokenStore interface {
	UpdateAccountTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiry time.Time) error
}

// AccountStore is the subset of the store the account connector needs.
type AccountStore interface {
	TokenStore
	UpsertAccount(ctx context.Context, in store.AccountInput) (*store.Account, error)
	GetAccount(ctx context.Context, id int64) (*store.Account, error)
	ActivateAccount(ctx context.Context, id int64) error
	DeleteAccount(ctx context.Context, id int64) error
}
