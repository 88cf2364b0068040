package analytics

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSON(w, http.StatusInternalServerError, posapi.StatsResponse{})
		return
	}
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("dashboard stats failed")
		common.JSON(w, http.StatusInternalServerError, posapi.StatsResponse{})
		return
	}
	common.JSON(w, http.StatusOK, posapi.StatsResponse{Success: true, Data: &stats})
}
