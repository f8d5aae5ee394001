// Package authenticator attaches the caller identity from a bearer access
// token to the request context. It never rejects a request itself; routes
// that need an identity wrap themselves in RequireUser.
package authenticator

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "finance_api/internal/lib/api/response"
	"finance_api/internal/lib/jwt"
	sl "finance_api/internal/lib/logger"

	"github.com/google/uuid"
)

type Verifier interface {
	Verify(token string) (*jwt.Claims, error)
}

type Identity struct {
	UserID uuid.UUID
	Email  string
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// New returns the gate. Requests whose path is in public skip it entirely.
func New(log *slog.Logger, verifier Verifier, public ...string) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/authenticator"))

	skip := make(map[string]struct{}, len(public))
	for _, p := range public {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				log.Debug("bearer token rejected", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if claims.Type != jwt.TypeAccess {
				log.Debug("bearer token is not an access token", slog.String("type", claims.Type))
				next.ServeHTTP(w, r)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: userID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

// RequireUser answers 401 when the gate attached no identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			resp.RenderUnauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
