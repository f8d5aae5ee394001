package forgot_password

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

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const acceptedMessage = "If the email exists, we sent the instructions"

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetRequester interface {
	RequestReset(ctx context.Context, email, requestIP, userAgent string) error
}

// New answers the same way for known and unknown emails.
func New(log *slog.Logger, validate *validator.Validate, requester ResetRequester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.forgot_password.New"

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

		if err := requester.RequestReset(ctx, req.Email, device.ClientIP(r), r.UserAgent()); err != nil {
			resp.RenderError(w, r, err)
			return
		}

		render.JSON(w, r, resp.OK(acceptedMessage, nil))
	}
}
