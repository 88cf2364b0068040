package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/toko-pos/internal/common"
)

// MsgBodyTooLarge is returned when a cart or item payload exceeds the limit.
const MsgBodyTooLarge = "Request body too large"

// BodyLimit enforces a maximum request payload size on requests that carry a
// body. GET and HEAD requests pass through untouched.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized requests with HTTP 413 and a
// {"success":false,"message":...} body.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > b.Max {
			common.Message(w, http.StatusRequestEntityTooLarge, false, MsgBodyTooLarge)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		if err != nil && !errors.Is(err, io.EOF) {
			common.Message(w, http.StatusBadRequest, false, "Invalid request body")
			return
		}
		_ = r.Body.Close()
		if int64(len(buf)) > b.Max {
			common.Message(w, http.StatusRequestEntityTooLarge, false, MsgBodyTooLarge)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}
