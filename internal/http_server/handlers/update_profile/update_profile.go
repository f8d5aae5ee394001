package update_profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	resp "finance_api/internal/lib/api/response"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/middleware/authenticator"
	"finance_api/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	FullName string `json:"fullName" validate:"required,max=120"`
}

type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string) (models.User, error)
}

func New(log *slog.Logger, validate *validator.Validate, updater ProfileUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.update_profile.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, ok := authenticator.IdentityFrom(r.Context())
		if !ok {
			resp.RenderUnauthorized(w, r)
			return
		}

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if errors.Is(err, io.EOF) {
			log.Error("request body is empty")
			resp.RenderBadRequest(w, r, "Request body is empty")
			return
		}
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			resp.RenderBadRequest(w, r, "Failed to decode request")
			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Info("invalid request", sl.Err(err))
			resp.RenderValidationError(w, r, validateErr)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := updater.UpdateProfile(ctx, identity.UserID, req.FullName)
		if err != nil {
			resp.RenderError(w, r, err)
			return
		}

		render.JSON(w, r, resp.OK("Profile updated", user.Profile()))
	}
}
