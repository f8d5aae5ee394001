package profile

import (
	"context"
	"testing"
	"time"

	"finance_api/internal/auth"
	"finance_api/internal/auth/reset"
	"finance_api/internal/lib/hasher"
	"finance_api/internal/lib/jwt"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/lib/tokenhash"
	"finance_api/internal/models"
	"finance_api/internal/storage"
	"finance_api/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// autocommitStore runs every statement on its own, the way READ COMMITTED
// does without row locks, and lets a test run another request right after
// the first user read.
type autocommitStore struct {
	*memory.Storage
	afterRead func()
}

func (s *autocommitStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	return fn(ctx, s)
}

func (s *autocommitStore) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	u, err := s.Storage.UserByID(ctx, id)

	if hook := s.afterRead; hook != nil {
		s.afterRead = nil
		hook()
	}

	return u, err
}

type discardMailer struct{}

func (discardMailer) Send(context.Context, string, string, string) error { return nil }

type interleaving struct {
	store  *memory.Storage
	hasher *hasher.Bcrypt
	reset  *reset.Service
	userID uuid.UUID
	token  string
}

func newInterleaving(t *testing.T) interleaving {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	h := hasher.New(bcrypt.MinCost)

	codec, err := jwt.New("test-secret-with-enough-entropy-0123456789", "finance-api", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	a, err := auth.New(sl.NewDiscard(), store, h, codec)
	require.NoError(t, err)

	session, err := a.Register(ctx, "carol@example.com", "Str0ng!Pass1", "Carol", phone)
	require.NoError(t, err)

	raw := "pending-reset-token"
	hash := tokenhash.Sum(raw)
	now := time.Now()
	expires := now.Add(reset.TokenTTL)
	require.NoError(t, store.SetResetToken(ctx, session.UserID, models.PasswordReset{
		TokenHash:   &hash,
		ExpiresAt:   &expires,
		RequestedAt: &now,
	}, now))

	return interleaving{
		store:  store,
		hasher: h,
		reset:  reset.New(sl.NewDiscard(), store, h, discardMailer{}, reset.Config{TokenBytes: 32}),
		userID: session.UserID,
		token:  raw,
	}
}

func (f interleaving) passwordIs(t *testing.T, password string) bool {
	t.Helper()

	u, err := f.store.UserByID(context.Background(), f.userID)
	require.NoError(t, err)

	return f.hasher.Verify(password, u.PassHash)
}

func TestUpdateProfile_KeepsConcurrentPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newInterleaving(t)

	store := &autocommitStore{Storage: f.store}
	store.afterRead = func() {
		require.NoError(t, f.reset.ConfirmReset(ctx, f.token, "R3set!Pass99"))
	}

	updated, err := New(sl.NewDiscard(), store, f.hasher).UpdateProfile(ctx, f.userID, "Carol Danvers")
	require.NoError(t, err)
	assert.Equal(t, "Carol Danvers", updated.FullName)

	assert.True(t, f.passwordIs(t, "R3set!Pass99"))
	assert.False(t, f.passwordIs(t, "Str0ng!Pass1"))

	u, err := f.store.UserByID(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, u.Reset.Used)
	assert.Equal(t, "Carol Danvers", u.FullName)

	err = f.reset.ConfirmReset(ctx, f.token, "An0ther!Pass")
	require.ErrorIs(t, err, reset.ErrInvalidToken)
	assert.True(t, f.passwordIs(t, "R3set!Pass99"))
}

func TestChangePassword_DoesNotUndoConcurrentReset(t *testing.T) {
	ctx := context.Background()
	f := newInterleaving(t)

	store := &autocommitStore{Storage: f.store}
	store.afterRead = func() {
		require.NoError(t, f.reset.ConfirmReset(ctx, f.token, "R3set!Pass99"))
	}

	err := New(sl.NewDiscard(), store, f.hasher).ChangePassword(ctx, f.userID, "Str0ng!Pass1", "N3w!Password")
	require.ErrorIs(t, err, ErrIncorrectPassword)

	assert.True(t, f.passwordIs(t, "R3set!Pass99"))
	assert.False(t, f.passwordIs(t, "N3w!Password"))
}
