package change_password

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

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

func New(log *slog.Logger, validate *validator.Validate, changer PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.change_password.New"

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

		if err := changer.ChangePassword(ctx, identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
			resp.RenderError(w, r, err)
			return
		}

		log.Info("password changed", slog.String("uid", identity.UserID.String()))

		render.JSON(w, r, resp.OK("Password changed", nil))
	}
}
