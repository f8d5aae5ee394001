package postgres

import (
	"context"
	"errors"
	"time"

	"finance_api/internal/models"
	"finance_api/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

func (s *Storage) SaveRefreshToken(ctx context.Context, token models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	const query = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, user_agent, ip_address, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.q.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.Device.UserAgent,
		token.Device.IP,
		token.ExpiresAt,
		token.Revoked,
		token.CreatedAt,
	)
	if err != nil {
		return oops.Code("REFRESH_TOKEN_INSERT_FAILED").In(op).With("user_id", token.UserID).Wrap(err)
	}

	return nil
}

func (s *Storage) UsableRefreshToken(
	ctx context.Context,
	userID uuid.UUID,
	tokenHash string,
	now time.Time,
) (models.RefreshToken, error) {
	const op = "storage.postgres.UsableRefreshToken"

	const query = `
		SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE user_id = $1
			AND token_hash = $2
			AND revoked = false
			AND expires_at > $3
		FOR UPDATE
	`

	var t models.RefreshToken

	err := s.q.QueryRow(ctx, query, userID, tokenHash, now).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.Device.UserAgent,
		&t.Device.IP,
		&t.ExpiresAt,
		&t.Revoked,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, oops.Code("REFRESH_TOKEN_SELECT_FAILED").In(op).With("user_id", userID).Wrap(err)
	}

	return t, nil
}

func (s *Storage) RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "storage.postgres.RevokeRefreshToken"

	const query = `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`

	tag, err := s.q.Exec(ctx, query, id)
	if err != nil {
		return false, oops.Code("REFRESH_TOKEN_REVOKE_FAILED").In(op).With("token_id", id).Wrap(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *Storage) RevokeDeviceRefreshTokens(ctx context.Context, userID uuid.UUID, device models.Device) (int64, error) {
	const op = "storage.postgres.RevokeDeviceRefreshTokens"

	const query = `
		UPDATE refresh_tokens SET revoked = true
		WHERE user_id = $1 AND user_agent = $2 AND ip_address = $3 AND revoked = false
	`

	tag, err := s.q.Exec(ctx, query, userID, device.UserAgent, device.IP)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_REVOKE_FAILED").In(op).With("user_id", userID).Wrap(err)
	}

	return tag.RowsAffected(), nil
}

func (s *Storage) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "storage.postgres.RevokeUserRefreshTokens"

	const query = `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`

	tag, err := s.q.Exec(ctx, query, userID)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_REVOKE_FAILED").In(op).With("user_id", userID).Wrap(err)
	}

	return tag.RowsAffected(), nil
}

func (s *Storage) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredRefreshTokens"

	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1`

	tag, err := s.q.Exec(ctx, query, before)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_PURGE_FAILED").In(op).Wrap(err)
	}

	return tag.RowsAffected(), nil
}
