package session

import (
	"net/http"

	resp "finance_api/internal/lib/api/response"
	"finance_api/internal/middleware/authenticator"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Response struct {
	Authenticated bool       `json:"authenticated"`
	UserID        *uuid.UUID `json:"userId"`
	Email         string     `json:"email,omitempty"`
}

// New reports the identity attached by the gate. Anonymous callers get
// authenticated=false, never an error.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out Response

		if identity, ok := authenticator.IdentityFrom(r.Context()); ok {
			out = Response{
				Authenticated: true,
				UserID:        &identity.UserID,
				Email:         identity.Email,
			}
		}

		render.JSON(w, r, resp.OK("", out))
	}
}
