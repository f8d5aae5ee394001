// Package reset implements single-use, time-boxed password reset tokens.
// Only the SHA-256 of a token is stored; the raw value travels by mail.
package reset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"finance_api/internal/auth"
	"finance_api/internal/auth/ledger"
	"finance_api/internal/lib/apperr"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/lib/tokenhash"
	"finance_api/internal/models"
	"finance_api/internal/storage"
)

const TokenTTL = 15 * time.Minute

const mailSubject = "Reset your password"

// ErrInvalidToken is returned when the token does not exist, has expired or
// was already used. The causes are intentionally indistinguishable.
var ErrInvalidToken = apperr.New(apperr.KindNotFound, "Invalid or expired token")

var ErrEmptyPassword = apperr.New(apperr.KindBadRequest, "New password is required")

// Mailer delivers the reset link. Failures are logged, never surfaced.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Cooldown throttles repeated requests for one email.
type Cooldown interface {
	AcquireResetCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error)
}

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
}

type Config struct {
	TokenBytes  int
	Alphabet    string
	TokenLength int
	BaseURL     string
	Cooldown    time.Duration
}

type Service struct {
	log      *slog.Logger
	store    storage.Transactor
	hasher   PasswordHasher
	mailer   Mailer
	cooldown Cooldown
	ledger   *ledger.Ledger
	cfg      Config
	now      func() time.Time
}

type Option func(*Service)

func WithCooldown(c Cooldown) Option {
	return func(s *Service) {
		s.cooldown = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(
	log *slog.Logger,
	store storage.Transactor,
	hasher PasswordHasher,
	mailer Mailer,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		log:    log,
		store:  store,
		hasher: hasher,
		mailer: mailer,
		cfg:    cfg,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.ledger = ledger.New(s.now)

	return s
}

// * RequestReset issues a reset token and mails the link. Unknown emails get
// the same nil result and no mail.
func (s *Service) RequestReset(ctx context.Context, email, requestIP, userAgent string) error {
	const op = "reset.RequestReset"

	log := s.log.With(slog.String("op", op))

	email = auth.NormalizeEmail(email)
	if email == "" {
		return nil
	}

	if s.cooldown != nil && s.cfg.Cooldown > 0 {
		ok, err := s.cooldown.AcquireResetCooldown(ctx, email, s.cfg.Cooldown)
		if err != nil {
			// throttling is optional, keep serving without it
			log.Warn("reset cooldown unavailable", sl.Err(err))
		} else if !ok {
			log.Info("reset requested again within cooldown")
			return nil
		}
	}

	raw, err := s.newToken()
	if err != nil {
		log.Error("failed to generate reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	var recipient string

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		user, err := tx.UserByEmail(ctx, email)
		if err != nil {
			return err
		}

		now := s.now()
		hash := tokenhash.Sum(raw)
		expiresAt := now.Add(TokenTTL)

		reset := models.PasswordReset{
			TokenHash:   &hash,
			ExpiresAt:   &expiresAt,
			Used:        false,
			RequestIP:   requestIP,
			UserAgent:   userAgent,
			RequestedAt: &now,
		}

		if err := tx.SetResetToken(ctx, user.ID, reset, now); err != nil {
			return err
		}

		recipient = user.Email
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("reset requested for unknown email")
			return nil
		}

		log.Error("failed to store reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	// sent only after commit; a failed send keeps the stored token
	if err := s.mailer.Send(ctx, recipient, mailSubject, s.mailBody(raw)); err != nil {
		log.Error("failed to send reset mail", sl.Err(err))
		return nil
	}

	log.Info("reset mail queued")

	return nil
}

// * ConfirmReset consumes the token once, sets the new password and revokes
// every refresh token of the user.
func (s *Service) ConfirmReset(ctx context.Context, rawToken, newPassword string) error {
	const op = "reset.ConfirmReset"

	log := s.log.With(slog.String("op", op))

	if newPassword == "" {
		return ErrEmptyPassword
	}
	if rawToken == "" {
		return ErrInvalidToken
	}

	passHash, err := s.hasher.Hash(newPassword)
	if apperr.IsKind(err, apperr.KindBadRequest) {
		return err
	}
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	var revoked int64

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		// the token check and the password write are one statement, so two
		// confirmations of the same token cannot both succeed
		userID, err := tx.ConsumeResetToken(ctx, tokenhash.Sum(rawToken), passHash, s.now())
		if err != nil {
			return err
		}

		revoked, err = s.ledger.RevokeAll(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("reset token rejected")
			return ErrInvalidToken
		}

		log.Error("failed to confirm reset", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.Int64("revoked_sessions", revoked))

	return nil
}

func (s *Service) newToken() (string, error) {
	if s.cfg.Alphabet != "" {
		return tokenhash.NewFromAlphabet(s.cfg.Alphabet, s.cfg.TokenLength)
	}

	return tokenhash.NewURLSafe(s.cfg.TokenBytes)
}

func (s *Service) mailBody(raw string) string {
	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(raw)

	return fmt.Sprintf(
		"We received a request to reset your password.\n\n"+
			"Open the link below within %d minutes to choose a new one:\n%s\n\n"+
			"If you did not ask for this, ignore this message.",
		int(TokenTTL.Minutes()), link,
	)
}
