package ratelimit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/common"
)

// MsgTooManyLogins is the envelope message a throttled login receives.
const MsgTooManyLogins = "Too many login attempts, try again later"

// Guard throttles a login endpoint. Every attempt counts against the
// caller's window; a login answered with success=true clears it so a
// cashier who mistypes once is not locked out for the rest of the window.
// When Redis is unreachable the attempt is let through and logged.
type Guard struct {
	Window  Window
	Key     func(*http.Request) string
	Message string
}

// ClientIPKey keys attempts by client address under scope.
func ClientIPKey(scope string) func(*http.Request) string {
	scope = strings.TrimSuffix(scope, ":")
	return func(r *http.Request) string {
		return scope + ":" + common.ClientIP(r)
	}
}

// Middleware wraps next with the guard.
func (g Guard) Middleware(next http.Handler) http.Handler {
	keyOf := g.Key
	if keyOf == nil {
		keyOf = ClientIPKey("login")
	}
	message := g.Message
	if message == "" {
		message = MsgTooManyLogins
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyOf(r)
		d, err := g.Window.Hit(r.Context(), key)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("key", key).Msg("login throttle unavailable")
			next.ServeHTTP(w, r)
			return
		}
		setHeaders(w.Header(), d)
		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(max(time.Until(d.ResetAt).Seconds(), 0))))
			common.Message(w, http.StatusTooManyRequests, false, message)
			return
		}

		rec := &resultSniffer{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.succeeded() {
			if err := g.Window.Reset(r.Context(), key); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("key", key).Msg("login throttle reset failed")
			}
		}
	})
}

func setHeaders(h http.Header, d Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// resultSniffer keeps the body of a JSON response so the guard can read the
// {success, message} envelope after the handler returns.
type resultSniffer struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (s *resultSniffer) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *resultSniffer) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	s.body.Write(p)
	return s.ResponseWriter.Write(p)
}

func (s *resultSniffer) succeeded() bool {
	if s.status != http.StatusOK {
		return false
	}
	var res common.Result
	return json.Unmarshal(s.body.Bytes(), &res) == nil && res.Success
}
