package confirm_reset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finance_api/internal/auth/reset"
	sl "finance_api/internal/lib/logger"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) ConfirmReset(ctx context.Context, rawToken, newPassword string) error {
	return m.Called(ctx, rawToken, newPassword).Error(0)
}

func TestConfirmResetHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockErr    error
		callsSvc   bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "password changed",
			body:       `{"token":"tok","newPassword":"N3w!Password"}`,
			callsSvc:   true,
			wantStatus: http.StatusOK,
			wantBody:   "Password changed successfully",
		},
		{
			name:       "expired or used token",
			body:       `{"token":"tok","newPassword":"N3w!Password"}`,
			mockErr:    reset.ErrInvalidToken,
			callsSvc:   true,
			wantStatus: http.StatusNotFound,
			wantBody:   `"message":"Invalid or expired token"`,
		},
		{
			name:       "missing new password",
			body:       `{"token":"tok"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"field":"newPassword"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockConfirmer{}
			if tt.callsSvc {
				svc.On("ConfirmReset", mock.Anything, "tok", "N3w!Password").Return(tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password/confirm", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			New(sl.NewDiscard(), validator.New(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
