package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finance_api/internal/auth"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string, device models.Device) (models.Session, error) {
	args := m.Called(ctx, refreshToken, device)
	return args.Get(0).(models.Session), args.Error(1)
}

func TestRefreshHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockErr    error
		callsSvc   bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "rotated",
			body:       `{"refreshToken":"r1"}`,
			callsSvc:   true,
			wantStatus: http.StatusOK,
			wantBody:   `"accessToken":"a2"`,
		},
		{
			name:       "missing token",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"field":"refreshToken"`,
		},
		{
			name:       "replayed token",
			body:       `{"refreshToken":"r1"}`,
			mockErr:    auth.ErrInvalidRefreshToken,
			callsSvc:   true,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `"code":"UNAUTHORIZED"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockRefresher{}
			if tt.callsSvc {
				svc.On("Refresh", mock.Anything, "r1", mock.AnythingOfType("models.Device")).
					Return(models.Session{Tokens: models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}}, tt.mockErr).
					Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			New(sl.NewDiscard(), validator.New(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
