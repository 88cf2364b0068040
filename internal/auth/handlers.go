package auth

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/obs"
)

// Handler exposes the login endpoints.
type Handler struct {
	Service *Service
	Logger  zerolog.Logger
}

type credentials struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.Message(w, http.StatusInternalServerError, false, MsgServerError)
		return
	}
	in, err := readCredentials(r)
	if err != nil {
		common.Message(w, http.StatusBadRequest, false, MsgMissingCredentials)
		return
	}
	if _, err := h.Service.Login(r.Context(), in.Email, in.Password); err != nil {
		obs.CountResult(obs.LoginAttemptsTotal, "rejected")
		h.writeError(w, err)
		return
	}
	obs.CountResult(obs.LoginAttemptsTotal, "ok")
	common.Message(w, http.StatusOK, true, MsgLoginSuccessful)
}

// Register handles POST /login/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.Message(w, http.StatusInternalServerError, false, MsgServerError)
		return
	}
	in, err := readCredentials(r)
	if err != nil {
		common.Message(w, http.StatusBadRequest, false, MsgRegisterMissing)
		return
	}
	if _, err := h.Service.Register(r.Context(), in.Fullname, in.Email, in.Password); err != nil {
		h.writeError(w, err)
		return
	}
	common.Message(w, http.StatusOK, true, MsgRegistered)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, message, serverSide := common.StatusOf(err, MsgServerError)
	if serverSide {
		h.Logger.Error().Err(err).Int("status", status).Msg("auth request failed")
	}
	common.Message(w, status, false, message)
}

// readCredentials accepts the login form encoding as well as JSON bodies.
func readCredentials(r *http.Request) (credentials, error) {
	var in credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}
	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in.Fullname = r.PostForm.Get("fullname")
	in.Email = r.PostForm.Get("email")
	in.Password = r.PostForm.Get("password")
	return in, nil
}
