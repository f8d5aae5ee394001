package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sl "finance_api/internal/lib/logger"
	"finance_api/internal/models"
	"finance_api/internal/storage"

	"github.com/google/uuid"
)

// EnsureAdmin creates the bootstrap account unless a user with that email
// already exists. It reports whether a user was created.
func (a *Auth) EnsureAdmin(ctx context.Context, email, fullName, password string) (bool, error) {
	const op = "auth.EnsureAdmin"

	log := a.log.With(slog.String("op", op))

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return false, fmt.Errorf("%s: email and password are required", op)
	}

	_, err := a.store.UserByEmail(ctx, email)
	if err == nil {
		log.Debug("admin already present")
		return false, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := a.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()
	user := models.User{
		ID:        uuid.New(),
		Email:     email,
		FullName:  strings.TrimSpace(fullName),
		PassHash:  passHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.store.SaveUser(ctx, user); err != nil {
		// another instance won the race
		if errors.Is(err, storage.ErrUserExists) {
			return false, nil
		}

		log.Error("failed to create admin", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin user created", slog.String("email", email))

	return true, nil
}
