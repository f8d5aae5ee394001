package logout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sl "finance_api/internal/lib/logger"
	"finance_api/internal/middleware/authenticator"
	"finance_api/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCloser struct {
	mock.Mock
}

func (m *mockCloser) Logout(ctx context.Context, userID uuid.UUID, device models.Device) error {
	return m.Called(ctx, userID, device).Error(0)
}

func TestLogoutHandler_RevokesCallingDevice(t *testing.T) {
	userID := uuid.New()

	svc := &mockCloser{}
	svc.On("Logout", mock.Anything, userID, models.Device{UserAgent: "phone", IP: "198.51.100.4"}).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("User-Agent", "phone")
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	req = req.WithContext(authenticator.WithIdentity(req.Context(), authenticator.Identity{UserID: userID}))
	rec := httptest.NewRecorder()

	New(sl.NewDiscard(), svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Logged out"`)
	svc.AssertExpectations(t)
}

func TestLogoutHandler_Anonymous(t *testing.T) {
	svc := &mockCloser{}

	rec := httptest.NewRecorder()
	New(sl.NewDiscard(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogoutHandler_StorageFailure(t *testing.T) {
	svc := &mockCloser{}
	svc.On("Logout", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom")).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(authenticator.WithIdentity(req.Context(), authenticator.Identity{UserID: uuid.New()}))
	rec := httptest.NewRecorder()

	New(sl.NewDiscard(), svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNEXPECTED_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}
