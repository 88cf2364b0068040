// Package register drives a single point-of-sale session: catalog lookup,
// cart edits and checkout.
package register

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/posapi"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/receipt"
)

var (
	// ErrEmptyCart is returned by Checkout when there is nothing to bill.
	ErrEmptyCart = receipt.ErrEmptyCart
	// ErrCheckoutAborted is returned when the operator declines to print an unsaved invoice.
	ErrCheckoutAborted = errors.New("register: checkout aborted")
	// ErrNoSuchResult is returned by Pick for an index outside the last result list.
	ErrNoSuchResult = errors.New("register: no such search result")
)

var barcodePattern = regexp.MustCompile(`^\d{8,}$`)

const minQueryLength = 2

// IsBarcode reports whether q looks like a scanned barcode.
func IsBarcode(q string) bool {
	return barcodePattern.MatchString(q)
}

// Catalog looks items up.
type Catalog interface {
	Search(ctx context.Context, q string) ([]posapi.Item, error)
	Item(ctx context.Context, id string) (posapi.Item, error)
}

// InvoiceSaver persists a checkout.
type InvoiceSaver interface {
	SaveInvoice(ctx context.Context, in posapi.SaveInvoiceRequest, idempotencyKey string) (posapi.SaveInvoiceResponse, error)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Presenter shows search results and inline messages.
type Presenter interface {
	ShowResults(items []posapi.Item)
	HideResults()
	Notify(message string)
}

// Config wires a Session.
type Config struct {
	Store        *cart.Store
	Catalog      Catalog
	Saver        InvoiceSaver
	Composer     receipt.Composer
	Printer      receipt.Printer
	Preview      io.Writer
	PrinterWidth int
	Confirm      Confirmer
	Presenter    Presenter
	Logger       zerolog.Logger
	Debounce     time.Duration
	CustomerName string
}

// CheckoutResult describes a completed checkout.
type CheckoutResult struct {
	InvoiceNo string
	Saved     bool
	Receipt   receipt.Receipt
}

// Session is one register. Cart mutations are synchronous; only the
// debounced catalog lookup runs in the background.
type Session struct {
	cfg Config

	token   atomic.Uint64
	mu      sync.Mutex
	timer   *time.Timer
	results []posapi.Item
	pending sync.WaitGroup

	checkoutMu      sync.Mutex
	checkoutKey     string
	checkoutVersion uint64
}

// New validates cfg and returns a Session.
func New(cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("register: cart store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("register: catalog is required")
	}
	if cfg.Saver == nil {
		return nil, errors.New("register: invoice saver is required")
	}
	if cfg.Printer == nil {
		cfg.Printer = receipt.NewNullPrinter()
	}
	if cfg.Confirm == nil {
		cfg.Confirm = declineAll{}
	}
	if cfg.Presenter == nil {
		cfg.Presenter = silent{}
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.PrinterWidth <= 0 {
		cfg.PrinterWidth = 48
	}
	if strings.TrimSpace(cfg.CustomerName) == "" {
		cfg.CustomerName = "Walk-In Customer"
	}
	return &Session{cfg: cfg}, nil
}

// Store exposes the session cart.
func (s *Session) Store() *cart.Store { return s.cfg.Store }

// Input handles a change of the search box. Every call invalidates lookups
// issued before it; a lookup only runs once input has been quiet for the
// debounce interval.
func (s *Session) Input(ctx context.Context, raw string) {
	query := strings.TrimSpace(raw)
	token := s.token.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil && s.timer.Stop() {
		s.pending.Done()
	}
	s.timer = nil
	s.results = nil
	s.cfg.Presenter.HideResults()

	if len(query) < minQueryLength && !IsBarcode(query) {
		return
	}
	s.pending.Add(1)
	s.timer = time.AfterFunc(s.cfg.Debounce, func() {
		defer s.pending.Done()
		s.lookup(ctx, token, query)
	})
}

// Wait blocks until the scheduled lookup, if any, has finished.
func (s *Session) Wait() {
	s.pending.Wait()
}

func (s *Session) current(token uint64) bool {
	return s.token.Load() == token
}

func (s *Session) lookup(ctx context.Context, token uint64, query string) {
	items, err := s.cfg.Catalog.Search(ctx, query)
	if !s.current(token) {
		s.cfg.Logger.Debug().Str("query", query).Msg("discarding stale search response")
		return
	}
	if err != nil {
		s.cfg.Logger.Error().Err(err).Str("query", query).Msg("catalog search failed")
		items = nil
	}

	if IsBarcode(query) {
		if len(items) == 0 {
			s.cfg.Presenter.Notify("No products found.")
			return
		}
		if err := s.addCatalogItem(items[0], decimal.NewFromInt(1)); err != nil {
			s.cfg.Presenter.Notify("Failed to add product. Please try again.")
		}
		return
	}

	s.mu.Lock()
	if !s.current(token) {
		s.mu.Unlock()
		return
	}
	s.results = items
	s.mu.Unlock()
	s.cfg.Presenter.ShowResults(items)
}

// Results returns the last search result list.
func (s *Session) Results() []posapi.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]posapi.Item, len(s.results))
	copy(out, s.results)
	return out
}

// Pick adds the n-th (1-based) entry of the last result list after fetching
// its full record.
func (s *Session) Pick(ctx context.Context, n int) error {
	s.mu.Lock()
	if n < 1 || n > len(s.results) {
		s.mu.Unlock()
		return ErrNoSuchResult
	}
	chosen := s.results[n-1]
	s.mu.Unlock()

	if err := s.AddByID(ctx, chosen.Key(), decimal.NewFromInt(1)); err != nil {
		return err
	}
	s.token.Add(1)
	s.mu.Lock()
	s.results = nil
	s.mu.Unlock()
	s.cfg.Presenter.HideResults()
	return nil
}

// AddByID fetches item id from the catalog and adds qty units.
func (s *Session) AddByID(ctx context.Context, id string, qty decimal.Decimal) error {
	item, err := s.cfg.Catalog.Item(ctx, id)
	if err != nil {
		s.cfg.Logger.Error().Err(err).Str("item_id", id).Msg("fetch product details failed")
		s.cfg.Presenter.Notify("Failed to add product. Please try again.")
		return err
	}
	return s.addCatalogItem(item, qty)
}

func (s *Session) addCatalogItem(item posapi.Item, qty decimal.Decimal) error {
	return s.cfg.Store.AddItem(cart.CatalogItem{
		ID:       item.Key(),
		Barcode:  item.Barcode,
		Name:     item.Name,
		Price:    item.Price,
		TaxRate:  item.TaxRate,
		Discount: item.Discount,
	}, qty)
}

// Checkout saves the current cart, prints the receipt and clears the cart.
// A failed save only blocks printing when the operator declines to go on.
func (s *Session) Checkout(ctx context.Context, mode receipt.PaymentMode) (CheckoutResult, error) {
	s.checkoutMu.Lock()
	defer s.checkoutMu.Unlock()

	snap := s.cfg.Store.Snapshot()
	summary := snap.Summary()
	if summary.Empty() {
		s.cfg.Presenter.Notify("No items to generate receipt for!")
		return CheckoutResult{}, ErrEmptyCart
	}

	// A retried checkout of an unchanged cart reuses its key so the server
	// answers with the invoice it already stored.
	if s.checkoutKey == "" || s.checkoutVersion != snap.Version {
		s.checkoutKey = uuid.NewString()
		s.checkoutVersion = snap.Version
	}

	result := CheckoutResult{}
	resp, err := s.cfg.Saver.SaveInvoice(ctx, s.invoiceRequest(summary, mode), s.checkoutKey)
	if err != nil {
		s.cfg.Logger.Error().Err(err).Msg("invoice save failed")
		if !s.cfg.Confirm.Confirm("Invoice could not be saved. Print the receipt anyway?") {
			return CheckoutResult{}, ErrCheckoutAborted
		}
		result.InvoiceNo = receipt.LocalInvoiceNo()
	} else {
		result.Saved = true
		result.InvoiceNo = resp.InvoiceNo
		if result.InvoiceNo == "" {
			result.InvoiceNo = receipt.LocalInvoiceNo()
		}
	}

	rcpt, err := s.cfg.Composer.Compose(summary, result.InvoiceNo, mode)
	if err != nil {
		return CheckoutResult{}, err
	}
	result.Receipt = rcpt

	if s.cfg.Preview != nil {
		if _, err := io.WriteString(s.cfg.Preview, rcpt.Text(s.cfg.PrinterWidth)); err != nil {
			s.cfg.Logger.Warn().Err(err).Msg("receipt preview failed")
		}
	}
	if err := s.cfg.Printer.Print(ctx, rcpt.ESCPOS(s.cfg.PrinterWidth)); err != nil {
		s.cfg.Presenter.Notify("Printing failed: " + err.Error())
		return result, fmt.Errorf("print receipt: %w", err)
	}

	s.checkoutKey = ""
	if err := s.cfg.Store.Clear(); err != nil {
		return result, err
	}
	s.cfg.Logger.Info().
		Str("invoice_no", result.InvoiceNo).
		Bool("saved", result.Saved).
		Str("final_amount", summary.FinalAmount.StringFixed(2)).
		Msg("checkout complete")
	return result, nil
}

func (s *Session) invoiceRequest(summary pricing.Summary, mode receipt.PaymentMode) posapi.SaveInvoiceRequest {
	lines := make([]posapi.InvoiceLine, 0, len(summary.Lines))
	for _, l := range summary.Lines {
		lines = append(lines, posapi.InvoiceLine{
			Barcode:  l.Barcode,
			Name:     l.Name,
			Price:    l.UnitPrice,
			Qty:      l.Quantity,
			Discount: l.DiscountPerUnit,
			TaxRate:  l.TaxRate,
			Total:    l.LineFinal,
		})
	}
	return posapi.SaveInvoiceRequest{
		CustomerName: s.cfg.CustomerName,
		Cart:         lines,
		FinalAmount:  summary.FinalAmount,
		PaymentMode:  string(mode),
		FlatDiscount: summary.FlatDiscount,
	}
}

type declineAll struct{}

func (declineAll) Confirm(string) bool { return false }

type silent struct{}

func (silent) ShowResults([]posapi.Item) {}
func (silent) HideResults()              {}
func (silent) Notify(string)             {}
