package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token RefreshToken
		want  bool
	}{
		{"fresh", RefreshToken{ExpiresAt: now.Add(time.Hour)}, true},
		{"revoked", RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}, false},
		{"expired", RefreshToken{ExpiresAt: now.Add(-time.Second)}, false},
		{"expires now", RefreshToken{ExpiresAt: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Usable(now))
		})
	}
}

func TestPasswordReset_Pending(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	hash := "abc"
	later := now.Add(15 * time.Minute)
	earlier := now.Add(-time.Minute)

	assert.True(t, PasswordReset{TokenHash: &hash, ExpiresAt: &later}.Pending(now))
	assert.False(t, PasswordReset{TokenHash: &hash, ExpiresAt: &later, Used: true}.Pending(now))
	assert.False(t, PasswordReset{TokenHash: &hash, ExpiresAt: &earlier}.Pending(now))
	assert.False(t, PasswordReset{ExpiresAt: &later}.Pending(now))
	assert.False(t, PasswordReset{}.Pending(now))
}

func TestUser_ProfileHidesCredentials(t *testing.T) {
	hash := "abc"
	u := User{
		Email:    "alice@example.com",
		FullName: "Alice",
		PassHash: []byte("secret"),
		Reset:    PasswordReset{TokenHash: &hash},
	}

	p := u.Profile()

	assert.Equal(t, Profile{ID: u.ID, Email: "alice@example.com", FullName: "Alice"}, p)
}
