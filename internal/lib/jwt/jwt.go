package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken is returned for every verification failure. Malformed,
// mis-signed, wrong-issuer and expired tokens are deliberately
// indistinguishable to callers; the wrapped cause is for logs only.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Type  string `json:"type"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Codec signs and verifies access and refresh tokens with one HMAC secret.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Codec)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func New(secret, issuer string, accessTTL, refreshTTL time.Duration, opts ...Option) (*Codec, error) {
	const op = "jwt.New"

	if secret == "" {
		return nil, fmt.Errorf("%s: empty signing secret", op)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%s: token ttl must be positive", op)
	}

	c := &Codec{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// IssueAccess signs a short-lived access token carrying subject and email.
func (c *Codec) IssueAccess(userID uuid.UUID, email string) (string, time.Time, error) {
	return c.issue(userID, TypeAccess, email, c.accessTTL)
}

// IssueRefresh signs a long-lived refresh token carrying only the subject.
func (c *Codec) IssueRefresh(userID uuid.UUID) (string, time.Time, error) {
	return c.issue(userID, TypeRefresh, "", c.refreshTTL)
}

func (c *Codec) issue(userID uuid.UUID, typ, email string, ttl time.Duration) (string, time.Time, error) {
	const op = "jwt.issue"

	now := c.now()

	claims := Claims{
		Type:  typ,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, claims.ExpiresAt.Time, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrInvalidToken, claims.Type)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject: %w", ErrInvalidToken, err)
	}

	return claims, nil
}
