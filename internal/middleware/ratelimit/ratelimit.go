// Package ratelimit holds the per-route request limits keyed by the
// transport address. Forwarding headers are client-controlled and ignored.
package ratelimit

import (
	"net/http"
	"time"

	resp "finance_api/internal/lib/api/response"

	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
)

const CodeTooManyRequests = "TOO_MANY_REQUESTS"

func Login() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func Register() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Refresh() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func Logout() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func ForgotPassword() func(http.Handler) http.Handler {
	return limitByIP(3, 15*time.Minute)
}

func ConfirmReset() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func ChangePassword() func(http.Handler) http.Handler {
	return limitByIP(5, 15*time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(tooManyRequests),
	)
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, resp.Error(r, CodeTooManyRequests, "Too many requests"))
}
