package common

import (
	"net"
	"net/http"
	"strings"
)

// IdempotencyHeader is the request header the register sets on invoice saves.
const IdempotencyHeader = "Idempotency-Key"

// ClientIP returns the address a request should be throttled by: the first
// X-Forwarded-For hop when a proxy set one, otherwise the host part of
// RemoteAddr (already rewritten by chi's RealIP middleware in the API).
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
