package hasher

import (
	"fmt"

	"finance_api/internal/lib/apperr"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 12

// MaxPasswordBytes is the bcrypt input limit. Request validation counts
// characters, so multi-byte passwords can pass it and still exceed this.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = apperr.New(apperr.KindBadRequest, "Password must be at most 72 bytes")

// Bcrypt hashes login credentials.
type Bcrypt struct {
	cost int
}

func New(cost int) *Bcrypt {
	if cost <= 0 {
		cost = DefaultCost
	}

	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(password string) ([]byte, error) {
	const op = "hasher.Hash"

	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

func (b *Bcrypt) Verify(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
