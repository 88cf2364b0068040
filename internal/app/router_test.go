package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/toko-pos/internal/app"
	"github.com/noah-isme/toko-pos/internal/auth"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/security"
)

type memUsers struct {
	users []db.User
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (m *memUsers) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	u := db.User{ID: int64(len(m.users) + 1), Fullname: arg.Fullname, Email: arg.Email, Password: arg.Password}
	m.users = append(m.users, u)
	return u, nil
}

func newRouter(t *testing.T, mutate func(*app.RouterConfig)) http.Handler {
	t.Helper()
	svc, err := auth.NewService(auth.Config{Queries: &memUsers{}})
	require.NoError(t, err)
	cfg := app.RouterConfig{
		Handlers: app.Handlers{Auth: &auth.Handler{Service: svc}},
		Logger:   zerolog.Nop(),
		Headers:  security.Headers{Enable: true, NoStore: true},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return app.NewRouter(cfg)
}

func postForm(h http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.1.1.7:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) common.Result {
	t.Helper()
	var res common.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestRouterRegisterThenLogin(t *testing.T) {
	h := newRouter(t, nil)

	rec := postForm(h, "/login/register", url.Values{"fullname": {"Cashier One"}, "email": {"c1@toko.test"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode(t, rec).Success)

	rec = postForm(h, "/login", url.Values{"email": {"c1@toko.test"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, auth.MsgLoginSuccessful, decode(t, rec).Message)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRouterHealthAndUnmountedGroups(t *testing.T) {
	h := newRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=rice", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterAPILimiter(t *testing.T) {
	limit, err := app.NewAPILimiter(memory.NewStore(), "2-M")
	require.NoError(t, err)
	h := newRouter(t, func(cfg *app.RouterConfig) { cfg.APILimiter = limit })

	for i := 0; i < 2; i++ {
		rec := postForm(h, "/login", url.Values{})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := postForm(h, "/login", url.Values{})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	res := decode(t, rec)
	require.False(t, res.Success)
	require.Equal(t, app.MsgTooManyRequests, res.Message)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewAPILimiterRejectsBadRate(t *testing.T) {
	_, err := app.NewAPILimiter(memory.NewStore(), "lots")
	require.Error(t, err)
}

func TestRouterBodyLimit(t *testing.T) {
	h := newRouter(t, func(cfg *app.RouterConfig) { cfg.BodyLimit = 16 })

	rec := postForm(h, "/login/register", url.Values{"fullname": {strings.Repeat("x", 64)}})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, security.MsgBodyTooLarge, decode(t, rec).Message)
}

func TestRouterCORSPreflight(t *testing.T) {
	h := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://register.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
