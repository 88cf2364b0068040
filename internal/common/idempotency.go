package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Messages the idempotency guard answers with.
const (
	MsgDuplicateSave = "This invoice is already being saved"
	MsgIdemStoreDown = "Could not check for duplicate save"
)

const (
	idemPending   = "pending"
	idemKeyPrefix = "pos:idem:"
)

// Idem guards write endpoints with the Idempotency-Key header. The first
// request with a key runs the handler and its response is kept for TTL;
// a repeat gets that response back, or 409 while the first is still running.
// A 5xx response frees the key so the register can retry the save.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type savedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func idemKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + key))
	return idemKeyPrefix + hex.EncodeToString(sum[:])
}

// Middleware wraps next with the guard. Requests without the header, or
// without a Redis client configured, pass straight through.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(r, header)
		claimed, err := i.R.SetNX(r.Context(), key, idemPending, i.TTL).Result()
		if err != nil {
			Message(w, http.StatusServiceUnavailable, false, MsgIdemStoreDown)
			return
		}
		if !claimed {
			i.replay(r.Context(), w, key)
			return
		}

		rec := &teeWriter{ResponseWriter: w, status: http.StatusOK}
		finished := false
		defer func() {
			if !finished || rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(context.Background(), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)
		finished = true
		if rec.status >= http.StatusInternalServerError {
			return
		}
		if payload, err := json.Marshal(savedResponse{
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}); err == nil {
			_ = i.R.Set(context.Background(), key, payload, i.TTL).Err()
		}
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	var saved savedResponse
	raw, err := i.R.Get(ctx, key).Bytes()
	if err != nil || string(raw) == idemPending || json.Unmarshal(raw, &saved) != nil {
		Message(w, http.StatusConflict, false, MsgDuplicateSave)
		return
	}
	if saved.ContentType != "" {
		w.Header().Set("Content-Type", saved.ContentType)
	}
	w.Header().Set("Idempotent-Replay", "true")
	w.WriteHeader(saved.Status)
	_, _ = w.Write(saved.Body)
}

// teeWriter copies the response body aside while writing it through.
type teeWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (t *teeWriter) WriteHeader(status int) {
	t.status = status
	t.ResponseWriter.WriteHeader(status)
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.body.Write(p)
	return t.ResponseWriter.Write(p)
}
