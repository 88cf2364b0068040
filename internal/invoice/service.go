// Package invoice persists checked-out carts and reads them back for
// receipts and reprints.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/posapi"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/receipt"
)

const (
	MsgEmptyCart   = "Cart is empty"
	MsgSaveFailed  = "Invoice save failed"
	MsgItemsFailed = "Invoice items save failed"
	MsgSaved       = "Invoice saved successfully"
	MsgNotFound    = "Invoice not found"
)

// DefaultCustomerName is stored when the register sends no customer.
const DefaultCustomerName = "Walk-In Customer"

var tolerance = decimal.RequireFromString("0.01")

// DiscountScale is the number of decimal places kept for a stored per-unit
// discount, matching invoice_items.discount.
const DiscountScale = 4

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service saves and loads invoices.
type Service struct {
	store        Store
	events       Emitter
	logger       zerolog.Logger
	now          func() time.Time
	location     *time.Location
	customerName string
	storeHeader  receipt.StoreHeader
}

// Config groups Service dependencies.
type Config struct {
	Store        Store
	Events       Emitter
	Logger       zerolog.Logger
	Now          func() time.Time
	Location     *time.Location
	CustomerName string
	StoreHeader  receipt.StoreHeader
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("invoice: store is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	name := strings.TrimSpace(cfg.CustomerName)
	if name == "" {
		name = DefaultCustomerName
	}
	return &Service{
		store:        cfg.Store,
		events:       cfg.Events,
		logger:       cfg.Logger,
		now:          now,
		location:     loc,
		customerName: name,
		storeHeader:  cfg.StoreHeader,
	}, nil
}

// Number formats the invoice number for sequence id issued at t.
func Number(id int64, t time.Time) string {
	return fmt.Sprintf("INV-%s-%06d", t.Format("20060102"), id)
}

// Save writes the invoice header and its lines in one transaction.
func (s *Service) Save(ctx context.Context, req posapi.SaveInvoiceRequest) (posapi.SaveInvoiceResponse, error) {
	if len(req.Cart) == 0 {
		obs.CountResult(obs.InvoicesSavedTotal, "empty")
		return posapi.SaveInvoiceResponse{}, &common.AppError{
			Code:       "EMPTY_CART",
			Message:    MsgEmptyCart,
			HTTPStatus: http.StatusOK,
		}
	}
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		customer = s.customerName
	}
	mode := receipt.ParsePaymentMode(req.PaymentMode)
	flat := req.FlatDiscount
	if flat.IsNegative() {
		flat = decimal.Zero
	}
	s.reconcile(req, flat)

	issuedAt := s.now().In(s.location)
	var saved db.Invoice
	err := s.store.InTx(ctx, func(q Queries) error {
		id, err := q.NextInvoiceID(ctx)
		if err != nil {
			return saveError(MsgSaveFailed, fmt.Errorf("next invoice id: %w", err))
		}
		saved, err = q.CreateInvoice(ctx, db.CreateInvoiceParams{
			ID:           id,
			InvoiceNo:    Number(id, issuedAt),
			CustomerName: customer,
			PaymentMode:  string(mode),
			FlatDiscount: db.Numeric(flat),
			TotalAmount:  db.Numeric(req.FinalAmount),
			CreatedAt:    pgtype.Timestamptz{Time: issuedAt, Valid: true},
		})
		if err != nil {
			return saveError(MsgSaveFailed, fmt.Errorf("create invoice: %w", err))
		}
		for i, line := range req.Cart {
			if err := q.CreateInvoiceItem(ctx, db.CreateInvoiceItemParams{
				InvoiceID: saved.ID,
				Barcode:   strings.TrimSpace(line.Barcode),
				ItemName:  strings.TrimSpace(line.Name),
				Quantity:  db.Numeric(line.Qty),
				Price:     db.Numeric(line.Price),
				Discount:  db.Numeric(line.Discount.Round(DiscountScale)),
				TaxRate:   db.Numeric(line.TaxRate),
				Total:     db.Numeric(line.Total),
			}); err != nil {
				return saveError(MsgItemsFailed, fmt.Errorf("create invoice line %d: %w", i+1, err))
			}
		}
		return nil
	})
	if err != nil {
		obs.CountResult(obs.InvoicesSavedTotal, "error")
		var appErr *common.AppError
		if !errors.As(err, &appErr) {
			err = saveError(MsgSaveFailed, err)
		}
		return posapi.SaveInvoiceResponse{}, err
	}

	obs.CountResult(obs.InvoicesSavedTotal, "ok")
	obs.Add(obs.InvoiceLinesTotal, float64(len(req.Cart)))
	s.emitSaved(ctx, saved, req, mode)
	return posapi.SaveInvoiceResponse{
		Success:   true,
		Message:   MsgSaved,
		InvoiceNo: saved.InvoiceNo,
		InvoiceID: saved.ID,
	}, nil
}

// reconcile recomputes each line and the bill total. The register printed
// what it sent, so disagreements are logged and counted, never rejected.
func (s *Service) reconcile(req posapi.SaveInvoiceRequest, flat decimal.Decimal) {
	lines := PricingLines(req.Cart)
	for i, l := range lines {
		expected := pricing.Breakdown(l).LineFinal.Round(2)
		if expected.Sub(req.Cart[i].Total).Abs().GreaterThan(tolerance) {
			obs.Add(obs.InvoiceTotalMismatchTotal, 1)
			s.logger.Warn().
				Int("line", i+1).
				Str("barcode", req.Cart[i].Barcode).
				Str("submitted", req.Cart[i].Total.String()).
				Str("expected", expected.String()).
				Msg("invoice line total mismatch")
		}
	}
	summary := pricing.Compute(lines, flat)
	if summary.FinalAmount.Sub(req.FinalAmount).Abs().GreaterThan(tolerance) {
		_, legacy := pricing.LegacyReceiptTotal(summary)
		s.logger.Warn().
			Str("submitted", req.FinalAmount.String()).
			Str("expected", summary.FinalAmount.String()).
			Bool("legacy_receipt", !legacy.Sub(req.FinalAmount).Abs().GreaterThan(tolerance)).
			Msg("invoice final amount mismatch")
	}
}

func (s *Service) emitSaved(ctx context.Context, inv db.Invoice, req posapi.SaveInvoiceRequest, mode receipt.PaymentMode) {
	if s.events == nil {
		return
	}
	qty := decimal.Zero
	for _, l := range req.Cart {
		qty = qty.Add(l.Qty)
	}
	if _, err := s.events.Emit(ctx, events.TopicInvoiceSaved, inv.InvoiceNo, events.InvoiceSaved{
		InvoiceID:   inv.ID,
		InvoiceNo:   inv.InvoiceNo,
		TotalAmount: req.FinalAmount.StringFixed(2),
		Lines:       len(req.Cart),
		Quantity:    qty.String(),
		PaymentMode: string(mode),
	}); err != nil {
		s.logger.Warn().Err(err).Str("invoice_no", inv.InvoiceNo).Msg("invoice.saved event failed")
	}
}

// Get loads a persisted invoice with its lines.
func (s *Service) Get(ctx context.Context, invoiceNo string) (posapi.Invoice, error) {
	inv, items, err := s.load(ctx, invoiceNo)
	if err != nil {
		return posapi.Invoice{}, err
	}
	out := posapi.Invoice{
		ID:           inv.ID,
		InvoiceNo:    inv.InvoiceNo,
		CustomerName: inv.CustomerName,
		PaymentMode:  inv.PaymentMode,
		FlatDiscount: db.Decimal(inv.FlatDiscount),
		TotalAmount:  db.Decimal(inv.TotalAmount),
		CreatedAt:    inv.CreatedAt.Time.Format(time.RFC3339),
		Lines:        make([]posapi.InvoiceLine, 0, len(items)),
	}
	for _, it := range items {
		out.Lines = append(out.Lines, toLine(it))
	}
	return out, nil
}

// Receipt rebuilds the printable receipt of a persisted invoice. The stored
// total is kept as the final amount.
func (s *Service) Receipt(ctx context.Context, invoiceNo string) (receipt.Receipt, error) {
	inv, items, err := s.load(ctx, invoiceNo)
	if err != nil {
		return receipt.Receipt{}, err
	}
	lines := make([]posapi.InvoiceLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, toLine(it))
	}
	summary := pricing.Compute(PricingLines(lines), db.Decimal(inv.FlatDiscount))
	issued := inv.CreatedAt.Time.In(s.location)
	composer := receipt.Composer{Store: s.storeHeader, Now: func() time.Time { return issued }}
	r, err := composer.Compose(summary, inv.InvoiceNo, receipt.ParsePaymentMode(inv.PaymentMode))
	if err != nil {
		return receipt.Receipt{}, err
	}
	total := db.Decimal(inv.TotalAmount)
	r.FinalAmount = total
	r.RoundOff = total.Sub(summary.AfterFlatDiscount)
	return r, nil
}

func (s *Service) load(ctx context.Context, invoiceNo string) (db.Invoice, []db.InvoiceItem, error) {
	no := strings.TrimSpace(invoiceNo)
	if no == "" {
		return db.Invoice{}, nil, notFound(nil)
	}
	q := s.store.Queries()
	inv, err := q.GetInvoiceByNo(ctx, no)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Invoice{}, nil, notFound(err)
		}
		return db.Invoice{}, nil, dbError(fmt.Errorf("get invoice %s: %w", no, err))
	}
	items, err := q.ListInvoiceItems(ctx, inv.ID)
	if err != nil {
		return db.Invoice{}, nil, dbError(fmt.Errorf("list invoice items %s: %w", no, err))
	}
	return inv, items, nil
}

// PricingLines turns persisted lines into pricing input. The stored discount
// is already a per-unit amount.
func PricingLines(lines []posapi.InvoiceLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, pricing.Line{
			Barcode:       l.Barcode,
			Name:          l.Name,
			Quantity:      l.Qty,
			UnitPrice:     l.Price,
			TaxRate:       l.TaxRate,
			DiscountType:  pricing.Flat,
			DiscountValue: l.Discount,
		})
	}
	return out
}

func toLine(it db.InvoiceItem) posapi.InvoiceLine {
	return posapi.InvoiceLine{
		Barcode:  it.Barcode,
		Name:     it.ItemName,
		Price:    db.Decimal(it.Price),
		Qty:      db.Decimal(it.Quantity),
		Discount: db.Decimal(it.Discount),
		TaxRate:  db.Decimal(it.TaxRate),
		Total:    db.Decimal(it.Total),
	}
}

func saveError(message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "INVOICE_SAVE",
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func dbError(err error) *common.AppError {
	return &common.AppError{
		Code:       common.CodeInternal,
		Message:    "Database error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func notFound(err error) *common.AppError {
	return &common.AppError{
		Code:       common.CodeNotFound,
		Message:    MsgNotFound,
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}
