package me

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "finance_api/internal/lib/api/response"
	"finance_api/internal/middleware/authenticator"
	"finance_api/internal/models"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type ProfileReader interface {
	Me(ctx context.Context, userID uuid.UUID) (models.User, error)
}

func New(log *slog.Logger, reader ProfileReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authenticator.IdentityFrom(r.Context())
		if !ok {
			resp.RenderUnauthorized(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := reader.Me(ctx, identity.UserID)
		if err != nil {
			log.Debug("profile lookup failed", slog.String("uid", identity.UserID.String()))
			resp.RenderError(w, r, err)
			return
		}

		render.JSON(w, r, resp.OK("", user.Profile()))
	}
}
