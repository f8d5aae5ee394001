package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance_api/internal/auth/ledger"
	"finance_api/internal/lib/apperr"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/models"
	"finance_api/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = apperr.New(apperr.KindNotFound, "User not found")
	ErrIncorrectPassword = apperr.New(apperr.KindBadRequest, "Current password is incorrect")
)

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(password string, hash []byte) bool
}

type Service struct {
	log    *slog.Logger
	store  storage.Transactor
	hasher PasswordHasher
	ledger *ledger.Ledger
	now    func() time.Time
}

func New(log *slog.Logger, store storage.Transactor, hasher PasswordHasher) *Service {
	return &Service{
		log:    log,
		store:  store,
		hasher: hasher,
		ledger: ledger.New(time.Now),
		now:    time.Now,
	}
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "profile.Me"

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}

		s.log.Error("failed to load user", slog.String("op", op), sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string) (models.User, error) {
	const op = "profile.UpdateProfile"

	log := s.log.With(slog.String("op", op), slog.String("uid", userID.String()))

	var updated models.User

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.SetFullName(ctx, userID, strings.TrimSpace(fullName), s.now()); err != nil {
			return err
		}

		user, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}

		updated = user
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}

		log.Error("failed to update profile", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("profile updated")

	return updated, nil
}

// * ChangePassword verifies the current password, stores the new one and
// revokes every refresh token of the user.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	const op = "profile.ChangePassword"

	log := s.log.With(slog.String("op", op), slog.String("uid", userID.String()))

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrUserNotFound
		}

		log.Error("failed to load user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(current, user.PassHash) {
		log.Info("current password mismatch")
		return ErrIncorrectPassword
	}

	passHash, err := s.hasher.Hash(next)
	if apperr.IsKind(err, apperr.KindBadRequest) {
		return err
	}
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	var revoked int64

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		// the hash verified above must still be the stored one
		ok, err := tx.ReplacePassword(ctx, userID, user.PassHash, passHash, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrIncorrectPassword
		}

		revoked, err = s.ledger.RevokeAll(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrIncorrectPassword) {
			log.Info("password changed concurrently")
			return ErrIncorrectPassword
		}

		log.Error("failed to change password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed", slog.Int64("revoked_sessions", revoked))

	return nil
}
