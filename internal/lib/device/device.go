package device

import (
	"net"
	"net/http"
	"strings"

	"finance_api/internal/models"
)

// FromRequest resolves the device fingerprint: the User-Agent header and the
// first X-Forwarded-For entry, falling back to the remote address.
func FromRequest(r *http.Request) models.Device {
	return models.Device{
		UserAgent: r.UserAgent(),
		IP:        ClientIP(r),
	}
}

func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
