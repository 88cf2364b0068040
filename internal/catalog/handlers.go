package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

// Handler exposes the catalog endpoints used by the register.
type Handler struct {
	service *Service
	logger  zerolog.Logger
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	Logger  zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, logger: cfg.Logger}
}

// Search handles GET /search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error().Err(err).Msg("catalog search failed")
		common.PlainError(w, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	common.JSON(w, http.StatusOK, items)
}

// Item handles GET /items/{id}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Item(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, message := statusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("catalog item lookup failed")
		}
		common.PlainError(w, status, message)
		return
	}
	common.JSON(w, http.StatusOK, item)
}

// AddItem handles POST /additem.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in posapi.NewItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		obs.CountResult(obs.ItemsAddedTotal, "invalid")
		common.Message(w, http.StatusBadRequest, false, MsgRequiredFields)
		return
	}
	if _, err := h.service.Create(r.Context(), in); err != nil {
		status, message := statusOf(err)
		if status >= http.StatusInternalServerError {
			obs.CountResult(obs.ItemsAddedTotal, "error")
			h.logger.Error().Err(err).Str("barcode", in.Barcode).Msg("catalog insert failed")
		} else {
			obs.CountResult(obs.ItemsAddedTotal, "invalid")
		}
		common.Message(w, status, false, message)
		return
	}
	obs.CountResult(obs.ItemsAddedTotal, "ok")
	common.Message(w, http.StatusOK, true, MsgItemAdded)
}

func statusOf(err error) (int, string) {
	status, message, _ := common.StatusOf(err, MsgDatabaseError)
	return status, message
}
