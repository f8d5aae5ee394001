// Package memory is an in-process storage.Transactor used by service and
// handler tests. Transactions are serialized and roll back by discarding a
// copy of the state.
package memory

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"finance_api/internal/models"
	"finance_api/internal/storage"

	"github.com/google/uuid"
)

type Storage struct {
	mu sync.Mutex
	st *state
}

var _ storage.Transactor = (*Storage)(nil)

func New() *Storage {
	return &Storage{st: newState()}
}

func (s *Storage) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.st = tx

	return nil
}

// RefreshTokens returns a snapshot of every ledger entry, for assertions.
func (s *Storage) RefreshTokens() []models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RefreshToken, 0, len(s.st.tokens))
	for _, id := range s.st.tokenOrder {
		out = append(out, s.st.tokens[id])
	}

	return out
}

func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.SaveUser(ctx, user)
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.UserByEmail(ctx, email)
}

func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.UserByID(ctx, id)
}

func (s *Storage) SetFullName(ctx context.Context, id uuid.UUID, fullName string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.SetFullName(ctx, id, fullName, updatedAt)
}

func (s *Storage) ReplacePassword(ctx context.Context, id uuid.UUID, oldHash, newHash []byte, updatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.ReplacePassword(ctx, id, oldHash, newHash, updatedAt)
}

func (s *Storage) SetResetToken(ctx context.Context, id uuid.UUID, reset models.PasswordReset, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.SetResetToken(ctx, id, reset, updatedAt)
}

func (s *Storage) ConsumeResetToken(ctx context.Context, tokenHash string, passHash []byte, now time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.ConsumeResetToken(ctx, tokenHash, passHash, now)
}

func (s *Storage) SaveRefreshToken(ctx context.Context, token models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.SaveRefreshToken(ctx, token)
}

func (s *Storage) UsableRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, now time.Time) (models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.UsableRefreshToken(ctx, userID, tokenHash, now)
}

func (s *Storage) RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.RevokeRefreshToken(ctx, id)
}

func (s *Storage) RevokeDeviceRefreshTokens(ctx context.Context, userID uuid.UUID, device models.Device) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.RevokeDeviceRefreshTokens(ctx, userID, device)
}

func (s *Storage) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.RevokeUserRefreshTokens(ctx, userID)
}

func (s *Storage) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.DeleteExpiredRefreshTokens(ctx, before)
}

type state struct {
	users      map[uuid.UUID]models.User
	tokens     map[uuid.UUID]models.RefreshToken
	tokenOrder []uuid.UUID
}

func newState() *state {
	return &state{
		users:  make(map[uuid.UUID]models.User),
		tokens: make(map[uuid.UUID]models.RefreshToken),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.tokens {
		c.tokens[k] = v
	}
	c.tokenOrder = append(c.tokenOrder, st.tokenOrder...)

	return c
}

func (st *state) SaveUser(_ context.Context, user models.User) error {
	for _, u := range st.users {
		if strings.EqualFold(u.Email, user.Email) {
			return storage.ErrUserExists
		}
	}
	if _, ok := st.users[user.ID]; ok {
		return storage.ErrUserExists
	}

	st.users[user.ID] = user

	return nil
}

func (st *state) UserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range st.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (st *state) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	u, ok := st.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (st *state) SetFullName(_ context.Context, id uuid.UUID, fullName string, updatedAt time.Time) error {
	u, ok := st.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.FullName = fullName
	u.UpdatedAt = updatedAt
	st.users[id] = u

	return nil
}

func (st *state) ReplacePassword(_ context.Context, id uuid.UUID, oldHash, newHash []byte, updatedAt time.Time) (bool, error) {
	u, ok := st.users[id]
	if !ok || !bytes.Equal(u.PassHash, oldHash) {
		return false, nil
	}

	u.PassHash = newHash
	u.UpdatedAt = updatedAt
	st.users[id] = u

	return true, nil
}

func (st *state) SetResetToken(_ context.Context, id uuid.UUID, reset models.PasswordReset, updatedAt time.Time) error {
	u, ok := st.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.Reset = reset
	u.UpdatedAt = updatedAt
	st.users[id] = u

	return nil
}

func (st *state) ConsumeResetToken(_ context.Context, tokenHash string, passHash []byte, now time.Time) (uuid.UUID, error) {
	for id, u := range st.users {
		if u.Reset.TokenHash == nil || *u.Reset.TokenHash != tokenHash || !u.Reset.Pending(now) {
			continue
		}

		u.PassHash = passHash
		u.Reset.Used = true
		u.UpdatedAt = now
		st.users[id] = u

		return id, nil
	}

	return uuid.Nil, storage.ErrUserNotFound
}

func (st *state) SaveRefreshToken(_ context.Context, token models.RefreshToken) error {
	st.tokens[token.ID] = token
	st.tokenOrder = append(st.tokenOrder, token.ID)

	return nil
}

func (st *state) UsableRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, now time.Time) (models.RefreshToken, error) {
	for _, id := range st.tokenOrder {
		t := st.tokens[id]
		if t.UserID == userID && t.TokenHash == tokenHash && t.Usable(now) {
			return t, nil
		}
	}

	return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
}

func (st *state) RevokeRefreshToken(_ context.Context, id uuid.UUID) (bool, error) {
	t, ok := st.tokens[id]
	if !ok || t.Revoked {
		return false, nil
	}

	t.Revoked = true
	st.tokens[id] = t

	return true, nil
}

func (st *state) RevokeDeviceRefreshTokens(_ context.Context, userID uuid.UUID, device models.Device) (int64, error) {
	return st.revokeWhere(func(t models.RefreshToken) bool {
		return t.UserID == userID && t.Device == device
	}), nil
}

func (st *state) RevokeUserRefreshTokens(_ context.Context, userID uuid.UUID) (int64, error) {
	return st.revokeWhere(func(t models.RefreshToken) bool {
		return t.UserID == userID
	}), nil
}

func (st *state) revokeWhere(match func(models.RefreshToken) bool) int64 {
	var n int64
	for id, t := range st.tokens {
		if !t.Revoked && match(t) {
			t.Revoked = true
			st.tokens[id] = t
			n++
		}
	}

	return n
}

func (st *state) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	kept := st.tokenOrder[:0]

	for _, id := range st.tokenOrder {
		if st.tokens[id].ExpiresAt.Before(before) {
			delete(st.tokens, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	st.tokenOrder = kept

	return n, nil
}
