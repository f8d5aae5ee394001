package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance_api/internal/auth/ledger"
	"finance_api/internal/lib/apperr"
	"finance_api/internal/lib/jwt"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/models"
	"finance_api/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "Invalid credentials")
	// ErrInvalidRefreshToken is returned for malformed, expired, revoked,
	// reused and never-issued refresh tokens alike.
	ErrInvalidRefreshToken = apperr.New(apperr.KindUnauthorized, "Refresh token is invalid or revoked")
	ErrEmailTaken          = apperr.New(apperr.KindConflict, "Email already registered")
)

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(password string, hash []byte) bool
}

type TokenCodec interface {
	IssueAccess(userID uuid.UUID, email string) (string, time.Time, error)
	IssueRefresh(userID uuid.UUID) (string, time.Time, error)
	Verify(token string) (*jwt.Claims, error)
}

// Observer receives one event per finished operation.
type Observer interface {
	AuthEvent(operation, outcome string)
}

type Auth struct {
	log       *slog.Logger
	store     storage.Transactor
	ledger    *ledger.Ledger
	hasher    PasswordHasher
	tokens    TokenCodec
	observer  Observer
	now       func() time.Time
	dummyHash []byte
}

type Option func(*Auth)

func WithObserver(o Observer) Option {
	return func(a *Auth) {
		a.observer = o
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func New(
	log *slog.Logger,
	store storage.Transactor,
	hasher PasswordHasher,
	tokens TokenCodec,
	opts ...Option,
) (*Auth, error) {
	const op = "auth.New"

	a := &Auth{
		log:      log,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		observer: nopObserver{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.ledger = ledger.New(a.now)

	// compared against on unknown emails so both login failures cost one hash
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.dummyHash = dummy

	return a, nil
}

// * Register creates the user and opens the first session for the device
func (a *Auth) Register(
	ctx context.Context,
	email, password, fullName string,
	device models.Device,
) (models.Session, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	email = NormalizeEmail(email)

	passHash, err := a.hasher.Hash(password)
	if apperr.IsKind(err, apperr.KindBadRequest) {
		a.observer.AuthEvent("register", "rejected")
		return models.Session{}, err
	}
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		a.observer.AuthEvent("register", "error")
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	var session models.Session

	err = a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		_, err := tx.UserByEmail(ctx, email)
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, storage.ErrUserNotFound) {
			return err
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

		if err := tx.SaveUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				return ErrEmailTaken
			}
			return err
		}

		session, err = a.issueSession(ctx, tx, user.ID, user.Email, device)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			log.Warn("email already registered")
			a.observer.AuthEvent("register", "conflict")
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		log.Error("failed to register user", sl.Err(err))
		a.observer.AuthEvent("register", "error")
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("uid", session.UserID.String()))
	a.observer.AuthEvent("register", "success")

	return session, nil
}

// * Login checks credentials and opens a session for the device
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
	device models.Device,
) (models.Session, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.store.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			a.hasher.Verify(password, a.dummyHash)

			log.Info("invalid credentials")
			a.observer.AuthEvent("login", "rejected")
			return models.Session{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		a.observer.AuthEvent("login", "error")
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(password, user.PassHash) {
		log.Info("invalid credentials")
		a.observer.AuthEvent("login", "rejected")
		return models.Session{}, ErrInvalidCredentials
	}

	var session models.Session

	err = a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		session, err = a.issueSession(ctx, tx, user.ID, user.Email, device)
		return err
	})
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		a.observer.AuthEvent("login", "error")
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", user.ID.String()))
	a.observer.AuthEvent("login", "success")

	return session, nil
}

// * Refresh redeems a refresh token once and rotates it
func (a *Auth) Refresh(
	ctx context.Context,
	rawRefreshToken string,
	device models.Device,
) (models.Session, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	claims, err := a.tokens.Verify(rawRefreshToken)
	if err != nil {
		log.Info("refresh token rejected", sl.Err(err))
		a.observer.AuthEvent("refresh", "rejected")
		return models.Session{}, ErrInvalidRefreshToken
	}
	if claims.Type != jwt.TypeRefresh {
		log.Info("refresh token rejected", slog.String("type", claims.Type))
		a.observer.AuthEvent("refresh", "rejected")
		return models.Session{}, ErrInvalidRefreshToken
	}

	userID, err := claims.UserID()
	if err != nil {
		a.observer.AuthEvent("refresh", "rejected")
		return models.Session{}, ErrInvalidRefreshToken
	}

	log = log.With(slog.String("uid", userID.String()))

	var session models.Session

	err = a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		entry, err := a.ledger.FindUsable(ctx, tx, userID, rawRefreshToken)
		if err != nil {
			return err
		}

		if err := a.ledger.Revoke(ctx, tx, entry); err != nil {
			return err
		}

		// refresh tokens carry no email claim
		user, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}

		session, err = a.issueSession(ctx, tx, userID, user.Email, device)
		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotUsable) || errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("refresh token not usable")
			a.observer.AuthEvent("refresh", "rejected")
			return models.Session{}, ErrInvalidRefreshToken
		}

		log.Error("failed to rotate refresh token", sl.Err(err))
		a.observer.AuthEvent("refresh", "error")
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful")
	a.observer.AuthEvent("refresh", "success")

	return session, nil
}

// * Logout revokes every refresh token issued to the user on this device.
// Access tokens stay valid until they expire.
func (a *Auth) Logout(ctx context.Context, userID uuid.UUID, device models.Device) error {
	const op = "auth.Logout"

	log := a.log.With(
		slog.String("op", op),
		slog.String("uid", userID.String()),
	)

	var revoked int64

	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		revoked, err = a.ledger.RevokeAllForDevice(ctx, tx, userID, device)
		return err
	})
	if err != nil {
		log.Error("failed to revoke refresh tokens", sl.Err(err))
		a.observer.AuthEvent("logout", "error")
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful", slog.Int64("revoked", revoked))
	a.observer.AuthEvent("logout", "success")

	return nil
}

// PurgeExpired deletes ledger entries that expired more than retention ago.
func (a *Auth) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	const op = "auth.PurgeExpired"

	n, err := a.ledger.Purge(ctx, a.store, retention)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("expired refresh tokens purged", slog.String("op", op), slog.Int64("deleted", n))

	return n, nil
}

func (a *Auth) issueSession(
	ctx context.Context,
	tx storage.Store,
	userID uuid.UUID,
	email string,
	device models.Device,
) (models.Session, error) {
	access, _, err := a.tokens.IssueAccess(userID, email)
	if err != nil {
		return models.Session{}, err
	}

	refresh, expiresAt, err := a.tokens.IssueRefresh(userID)
	if err != nil {
		return models.Session{}, err
	}

	if _, err := a.ledger.Record(ctx, tx, userID, refresh, device, expiresAt); err != nil {
		return models.Session{}, err
	}

	return models.Session{
		UserID: userID,
		Email:  email,
		Tokens: models.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
		},
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type nopObserver struct{}

func (nopObserver) AuthEvent(string, string) {}
