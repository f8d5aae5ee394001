package storage

import (
	"context"
	"errors"
	"time"

	"finance_api/internal/models"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

type Users interface {
	SaveUser(ctx context.Context, user models.User) error
	// UserByEmail matches case-insensitively.
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)

	// Writes touch only their own columns, so concurrent writers never put
	// back values they read earlier.

	SetFullName(ctx context.Context, id uuid.UUID, fullName string, updatedAt time.Time) error
	// ReplacePassword swaps the hash only while it still equals oldHash. It
	// reports false when the password changed since oldHash was read.
	ReplacePassword(ctx context.Context, id uuid.UUID, oldHash, newHash []byte, updatedAt time.Time) (bool, error)
	// SetResetToken overwrites the pending reset request of the user.
	SetResetToken(ctx context.Context, id uuid.UUID, reset models.PasswordReset, updatedAt time.Time) error
	// ConsumeResetToken sets the password and marks the token used in one
	// conditional write. Only an unused token that has not expired at now
	// matches; otherwise it returns ErrUserNotFound.
	ConsumeResetToken(ctx context.Context, tokenHash string, passHash []byte, now time.Time) (uuid.UUID, error)
}

type RefreshTokens interface {
	SaveRefreshToken(ctx context.Context, token models.RefreshToken) error
	// UsableRefreshToken looks up a non-revoked, unexpired entry and locks it.
	UsableRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, now time.Time) (models.RefreshToken, error)
	// RevokeRefreshToken flips revoked from false to true. It reports false
	// when the entry was already revoked.
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error)
	RevokeDeviceRefreshTokens(ctx context.Context, userID uuid.UUID, device models.Device) (int64, error)
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

type Store interface {
	Users
	RefreshTokens
}

// Transactor runs fn in one transaction. fn must only use the Store it
// receives; the transaction commits when fn returns nil.
type Transactor interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
