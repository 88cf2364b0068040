package invoice

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

// PrintQueue schedules a receipt reprint for a saved invoice.
type PrintQueue interface {
	EnqueuePrint(ctx context.Context, invoiceNo string) error
}

// Handler exposes invoice endpoints.
type Handler struct {
	service *Service
	printer PrintQueue
	logger  zerolog.Logger
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	Print   PrintQueue
	Logger  zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, printer: cfg.Print, logger: cfg.Logger}
}

// Save handles POST /invoice.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req posapi.SaveInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSON(w, http.StatusBadRequest, posapi.SaveInvoiceResponse{Message: "Invalid invoice payload"})
		return
	}
	res, err := h.service.Save(r.Context(), req)
	if err != nil {
		status, message := h.statusOf(err)
		common.JSON(w, status, posapi.SaveInvoiceResponse{Message: message})
		return
	}
	common.JSON(w, http.StatusOK, res)
}

// Get handles GET /invoices/{invoiceNo}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "invoiceNo"))
	if err != nil {
		status, message := h.statusOf(err)
		common.PlainError(w, status, message)
		return
	}
	common.JSON(w, http.StatusOK, inv)
}

// ReceiptPDF handles GET /invoices/{invoiceNo}/receipt.pdf.
func (h *Handler) ReceiptPDF(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Receipt(r.Context(), chi.URLParam(r, "invoiceNo"))
	if err != nil {
		status, message := h.statusOf(err)
		common.PlainError(w, status, message)
		return
	}
	pdf, err := rec.PDF()
	if err != nil {
		h.logger.Error().Err(err).Str("invoice_no", rec.InvoiceNo).Msg("render receipt pdf")
		common.PlainError(w, http.StatusInternalServerError, "Receipt rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+rec.InvoiceNo+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Print handles POST /invoices/{invoiceNo}/print.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	if h.printer == nil {
		common.Message(w, http.StatusServiceUnavailable, false, "Printing is not configured")
		return
	}
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "invoiceNo"))
	if err != nil {
		status, message := h.statusOf(err)
		common.Message(w, status, false, message)
		return
	}
	if err := h.printer.EnqueuePrint(r.Context(), inv.InvoiceNo); err != nil {
		h.logger.Error().Err(err).Str("invoice_no", inv.InvoiceNo).Msg("enqueue receipt print")
		common.Message(w, http.StatusInternalServerError, false, "Print job could not be queued")
		return
	}
	common.Message(w, http.StatusAccepted, true, "Print job queued")
}

func (h *Handler) statusOf(err error) (int, string) {
	status, message, serverSide := common.StatusOf(err, MsgSaveFailed)
	if serverSide {
		h.logger.Error().Err(err).Int("status", status).Msg("invoice request failed")
	}
	return status, message
}
