package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance_api/internal/models"
	"finance_api/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		require.NoError(t, tx.SaveUser(ctx, models.User{ID: uuid.New(), Email: "a@example.com"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.UserByEmail(ctx, "a@example.com")
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestSaveUser_EmailCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SaveUser(ctx, models.User{ID: uuid.New(), Email: "Alice@Example.com"}))

	err := s.SaveUser(ctx, models.User{ID: uuid.New(), Email: "alice@example.com"})
	require.ErrorIs(t, err, storage.ErrUserExists)

	u, err := s.UserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice@Example.com", u.Email)
}

func TestRefreshTokens_RevokeAndPurge(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	userID := uuid.New()
	phone := models.Device{UserAgent: "phone", IP: "10.0.0.1"}
	laptop := models.Device{UserAgent: "laptop", IP: "10.0.0.2"}

	live := models.RefreshToken{ID: uuid.New(), UserID: userID, TokenHash: "h1", Device: phone, ExpiresAt: now.Add(time.Hour)}
	other := models.RefreshToken{ID: uuid.New(), UserID: userID, TokenHash: "h2", Device: laptop, ExpiresAt: now.Add(time.Hour)}
	old := models.RefreshToken{ID: uuid.New(), UserID: userID, TokenHash: "h3", Device: phone, ExpiresAt: now.Add(-48 * time.Hour)}

	for _, tok := range []models.RefreshToken{live, other, old} {
		require.NoError(t, s.SaveRefreshToken(ctx, tok))
	}

	ok, err := s.RevokeRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RevokeRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second revoke must lose the compare-and-swap")

	_, err = s.UsableRefreshToken(ctx, userID, "h1", now)
	require.ErrorIs(t, err, storage.ErrRefreshTokenNotFound)

	n, err := s.RevokeDeviceRefreshTokens(ctx, userID, laptop)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteExpiredRefreshTokens(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, s.RefreshTokens(), 2)
}

func TestUserWrites_TouchOnlyTheirColumns(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	require.NoError(t, s.SaveUser(ctx, models.User{ID: id, Email: "kim@example.com", PassHash: []byte("h1")}))

	hash := "reset-digest"
	expires := now.Add(15 * time.Minute)
	require.NoError(t, s.SetResetToken(ctx, id, models.PasswordReset{TokenHash: &hash, ExpiresAt: &expires}, now))
	require.NoError(t, s.SetFullName(ctx, id, "Kim", now))

	_, err := s.ConsumeResetToken(ctx, hash, []byte("h2"), expires)
	require.ErrorIs(t, err, storage.ErrUserNotFound, "expired at the boundary")

	got, err := s.ConsumeResetToken(ctx, hash, []byte("h2"), now)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = s.ConsumeResetToken(ctx, hash, []byte("h3"), now)
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	ok, err := s.ReplacePassword(ctx, id, []byte("h1"), []byte("h4"), now)
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Kim", u.FullName)
	assert.Equal(t, []byte("h2"), u.PassHash)
	assert.True(t, u.Reset.Used)
}
