// Package tokenhash generates opaque bearer secrets and the SHA-256
// digests that are stored in their place.
package tokenhash

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

const MinBytes = 32

// Sum returns the lowercase hex SHA-256 of raw.
func Sum(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewURLSafe returns n random bytes (at least MinBytes) encoded as
// unpadded base64url.
func NewURLSafe(n int) (string, error) {
	const op = "tokenhash.NewURLSafe"

	if n < MinBytes {
		n = MinBytes
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewFromAlphabet returns a token of the given length drawn uniformly from
// alphabet. Used for tokens a person has to type.
func NewFromAlphabet(alphabet string, length int) (string, error) {
	const op = "tokenhash.NewFromAlphabet"

	symbols := []rune(alphabet)
	if len(symbols) < 2 {
		return "", fmt.Errorf("%s: alphabet too small", op)
	}
	if length <= 0 {
		return "", fmt.Errorf("%s: length must be positive", op)
	}

	size := big.NewInt(int64(len(symbols)))
	out := make([]rune, length)

	for i := range out {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		out[i] = symbols[idx.Int64()]
	}

	return string(out), nil
}
