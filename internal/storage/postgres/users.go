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

const userColumns = `id, email, full_name, pass_hash, created_at, updated_at,
	reset_token_sha256, reset_token_expires_at, reset_token_used,
	reset_request_ip, reset_request_user_agent, reset_requested_at`

func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.SaveUser"

	const query = `
		INSERT INTO app_user (id, email, full_name, pass_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.q.Exec(ctx, query,
		user.ID, user.Email, user.FullName, user.PassHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserExists
		}

		return oops.Code("USER_INSERT_FAILED").In(op).With("email", user.Email).Wrap(err)
	}

	return nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `SELECT ` + userColumns + ` FROM app_user WHERE lower(email) = lower($1)`

	return scanUser(s.q.QueryRow(ctx, query, email), op)
}

func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM app_user WHERE id = $1`

	return scanUser(s.q.QueryRow(ctx, query, id), op)
}

func (s *Storage) SetFullName(ctx context.Context, id uuid.UUID, fullName string, updatedAt time.Time) error {
	const op = "storage.postgres.SetFullName"

	const query = `UPDATE app_user SET full_name = $2, updated_at = $3 WHERE id = $1`

	tag, err := s.q.Exec(ctx, query, id, fullName, updatedAt)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").In(op).With("user_id", id).Wrap(err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (s *Storage) ReplacePassword(
	ctx context.Context,
	id uuid.UUID,
	oldHash, newHash []byte,
	updatedAt time.Time,
) (bool, error) {
	const op = "storage.postgres.ReplacePassword"

	const query = `UPDATE app_user SET pass_hash = $3, updated_at = $4 WHERE id = $1 AND pass_hash = $2`

	tag, err := s.q.Exec(ctx, query, id, oldHash, newHash, updatedAt)
	if err != nil {
		return false, oops.Code("USER_UPDATE_FAILED").In(op).With("user_id", id).Wrap(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *Storage) SetResetToken(ctx context.Context, id uuid.UUID, reset models.PasswordReset, updatedAt time.Time) error {
	const op = "storage.postgres.SetResetToken"

	const query = `
		UPDATE app_user SET
			reset_token_sha256 = $2,
			reset_token_expires_at = $3,
			reset_token_used = $4,
			reset_request_ip = $5,
			reset_request_user_agent = $6,
			reset_requested_at = $7,
			updated_at = $8
		WHERE id = $1
	`

	tag, err := s.q.Exec(ctx, query,
		id,
		reset.TokenHash,
		reset.ExpiresAt,
		reset.Used,
		reset.RequestIP,
		reset.UserAgent,
		reset.RequestedAt,
		updatedAt,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").In(op).With("user_id", id).Wrap(err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// ConsumeResetToken relies on the row lock UPDATE takes: a second writer
// waits, then re-checks reset_token_used and matches nothing.
func (s *Storage) ConsumeResetToken(ctx context.Context, tokenHash string, passHash []byte, now time.Time) (uuid.UUID, error) {
	const op = "storage.postgres.ConsumeResetToken"

	const query = `
		UPDATE app_user SET
			pass_hash = $2,
			reset_token_used = true,
			updated_at = $3
		WHERE reset_token_sha256 = $1
			AND reset_token_used = false
			AND reset_token_expires_at > $3
		RETURNING id
	`

	var id uuid.UUID

	err := s.q.QueryRow(ctx, query, tokenHash, passHash, now).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, storage.ErrUserNotFound
		}

		return uuid.Nil, oops.Code("RESET_TOKEN_CONSUME_FAILED").In(op).Wrap(err)
	}

	return id, nil
}

func scanUser(row pgx.Row, op string) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PassHash,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Reset.TokenHash,
		&u.Reset.ExpiresAt,
		&u.Reset.Used,
		&u.Reset.RequestIP,
		&u.Reset.UserAgent,
		&u.Reset.RequestedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, oops.Code("USER_SELECT_FAILED").In(op).Wrap(err)
	}

	return u, nil
}
