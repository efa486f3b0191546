package auth

import (
	"context"
	"time"

	"rwpay/internal/core/id"
)

// UserRepository stores administrator accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)

	Update(ctx context.Context, user *User) error
	Exists(ctx context.Context, email string) (bool, error)
}

// TokenRepository stores refresh tokens by hash.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error

	// CleanupExpiredTokens deletes tokens that expired before the cutoff.
	CleanupExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}
