// Package ledger records issued refresh tokens by their SHA-256 digest and
// tracks their revocation. Raw tokens never reach storage.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance_api/internal/lib/tokenhash"
	"finance_api/internal/models"
	"finance_api/internal/storage"

	"github.com/google/uuid"
)

// ErrNotUsable covers never issued, revoked, expired, and lost a concurrent
// redeem. Callers must not tell these apart.
var ErrNotUsable = errors.New("refresh token is not usable")

type Ledger struct {
	now func() time.Time
}

func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}

	return &Ledger{now: now}
}

// Record stores a new entry for rawToken with revoked=false.
func (l *Ledger) Record(
	ctx context.Context,
	repo storage.RefreshTokens,
	userID uuid.UUID,
	rawToken string,
	device models.Device,
	expiresAt time.Time,
) (models.RefreshToken, error) {
	const op = "ledger.Record"

	entry := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenhash.Sum(rawToken),
		Device:    device,
		ExpiresAt: expiresAt,
		CreatedAt: l.now(),
	}

	if err := repo.SaveRefreshToken(ctx, entry); err != nil {
		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return entry, nil
}

// FindUsable returns the non-revoked, unexpired entry for rawToken. Inside a
// transaction the row stays locked until commit.
func (l *Ledger) FindUsable(
	ctx context.Context,
	repo storage.RefreshTokens,
	userID uuid.UUID,
	rawToken string,
) (models.RefreshToken, error) {
	const op = "ledger.FindUsable"

	entry, err := repo.UsableRefreshToken(ctx, userID, tokenhash.Sum(rawToken), l.now())
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return models.RefreshToken{}, ErrNotUsable
		}

		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return entry, nil
}

// Revoke flips the entry to revoked. Losing the swap to a concurrent revoke
// returns ErrNotUsable.
func (l *Ledger) Revoke(ctx context.Context, repo storage.RefreshTokens, entry models.RefreshToken) error {
	const op = "ledger.Revoke"

	ok, err := repo.RevokeRefreshToken(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return ErrNotUsable
	}

	return nil
}

func (l *Ledger) RevokeAllForDevice(
	ctx context.Context,
	repo storage.RefreshTokens,
	userID uuid.UUID,
	device models.Device,
) (int64, error) {
	const op = "ledger.RevokeAllForDevice"

	n, err := repo.RevokeDeviceRefreshTokens(ctx, userID, device)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (l *Ledger) RevokeAll(ctx context.Context, repo storage.RefreshTokens, userID uuid.UUID) (int64, error) {
	const op = "ledger.RevokeAll"

	n, err := repo.RevokeUserRefreshTokens(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// Purge deletes entries that expired more than retention ago. Expiry is
// enforced on lookup, this only reclaims space.
func (l *Ledger) Purge(ctx context.Context, repo storage.RefreshTokens, retention time.Duration) (int64, error) {
	const op = "ledger.Purge"

	n, err := repo.DeleteExpiredRefreshTokens(ctx, l.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
