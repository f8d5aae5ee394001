package login

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	resp "finance_api/internal/lib/api/response"
	"finance_api/internal/lib/device"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password string, device models.Device) (models.Session, error)
}

func New(log *slog.Logger, validate *validator.Validate, authenticator Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

		session, err := authenticator.Login(ctx, req.Email, req.Password, device.FromRequest(r))
		if err != nil {
			resp.RenderError(w, r, err)
			return
		}

		render.JSON(w, r, resp.OK("Authenticated", session))
	}
}
