package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "finance_api/internal/lib/api/response"
	"finance_api/internal/lib/device"
	"finance_api/internal/middleware/authenticator"
	"finance_api/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type SessionCloser interface {
	Logout(ctx context.Context, userID uuid.UUID, device models.Device) error
}

// New revokes the refresh tokens of the calling device. Must be mounted
// behind authenticator.RequireUser.
func New(log *slog.Logger, closer SessionCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, ok := authenticator.IdentityFrom(r.Context())
		if !ok {
			resp.RenderUnauthorized(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := closer.Logout(ctx, identity.UserID, device.FromRequest(r)); err != nil {
			resp.RenderError(w, r, err)
			return
		}

		log.Info("user logged out", slog.String("uid", identity.UserID.String()))

		render.JSON(w, r, resp.OK("Logged out", nil))
	}
}
