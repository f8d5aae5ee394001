package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"finance_api/internal/http_server/handlers/change_password"
	"finance_api/internal/http_server/handlers/confirm_reset"
	"finance_api/internal/http_server/handlers/forgot_password"
	"finance_api/internal/http_server/handlers/login"
	"finance_api/internal/http_server/handlers/logout"
	"finance_api/internal/http_server/handlers/me"
	"finance_api/internal/http_server/handlers/refresh"
	"finance_api/internal/http_server/handlers/register"
	"finance_api/internal/http_server/handlers/session"
	"finance_api/internal/http_server/handlers/update_profile"
	resp "finance_api/internal/lib/api/response"
	"finance_api/internal/lib/apperr"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/middleware/authenticator"
	"finance_api/internal/middleware/ratelimit"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
)

// PublicPaths bypass the bearer gate entirely.
var PublicPaths = []string{
	"/auth/register",
	"/auth/login",
	"/auth/refresh",
	"/auth/forgot-password",
	"/auth/forgot-password/confirm",
	"/healthz",
}

type AuthService interface {
	register.Registrar
	login.Authenticator
	refresh.Refresher
	logout.SessionCloser
}

type ResetService interface {
	forgot_password.ResetRequester
	confirm_reset.ResetConfirmer
}

type ProfileService interface {
	me.ProfileReader
	update_profile.ProfileUpdater
	change_password.PasswordChanger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Log      *slog.Logger
	Verifier authenticator.Verifier
	Auth     AuthService
	Reset    ResetService
	Profile  ProfileService
	Health   Pinger

	// optional
	Metrics        func(http.Handler) http.Handler
	AllowedOrigins []string
	RateLimit      bool
}

func New(d Deps) *chi.Mux {
	validate := validator.New(validator.WithRequiredStructEnabled())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics)
	}
	if len(d.AllowedOrigins) > 0 {
		r.Use(handlers.CORS(
			handlers.AllowedOrigins(d.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
			handlers.AllowCredentials(),
		))
	}
	r.Use(authenticator.New(d.Log, d.Verifier, PublicPaths...))

	limit := func(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
		if !d.RateLimit {
			return func(next http.Handler) http.Handler { return next }
		}
		return mw
	}

	r.Get("/healthz", health(d.Log, d.Health))

	r.Route("/auth", func(r chi.Router) {
		r.With(limit(ratelimit.Register())).Post("/register", register.New(d.Log, validate, d.Auth))
		r.With(limit(ratelimit.Login())).Post("/login", login.New(d.Log, validate, d.Auth))
		r.With(limit(ratelimit.Refresh())).Post("/refresh", refresh.New(d.Log, validate, d.Auth))
		r.With(limit(ratelimit.Logout()), authenticator.RequireUser).Post("/logout", logout.New(d.Log, d.Auth))
		r.Get("/session", session.New())
		r.With(limit(ratelimit.ForgotPassword())).Post("/forgot-password", forgot_password.New(d.Log, validate, d.Reset))
		r.With(limit(ratelimit.ConfirmReset())).Post("/forgot-password/confirm", confirm_reset.New(d.Log, validate, d.Reset))
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Use(authenticator.RequireUser)

		r.Get("/", me.New(d.Log, d.Profile))
		r.Put("/", update_profile.New(d.Log, validate, d.Profile))
		r.With(limit(ratelimit.ChangePassword())).Put("/password", change_password.New(d.Log, validate, d.Profile))
	})

	return r
}

func health(log *slog.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.Ping(ctx); err != nil {
				log.Error("health check failed", sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error(r, apperr.CodeUnexpected, "Service unavailable"))
				return
			}
		}

		render.JSON(w, r, resp.OK("ok", nil))
	}
}
