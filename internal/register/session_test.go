package register

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/posapi"
	"github.com/noah-isme/toko-pos/internal/receipt"
)

type fakeCatalog struct {
	mu       sync.Mutex
	items    map[string]posapi.Item
	queries  []string
	gate     map[string]chan struct{}
	started  chan string
	fetchErr error
}

func newCatalog() *fakeCatalog {
	soap := posapi.Item{ID: 1, Barcode: "89010001", Name: "Soap", Price: decimal.NewFromInt(100), Discount: decimal.NewFromInt(10)}
	rice := posapi.Item{ID: 2, Barcode: "89010002", Name: "Rice", Price: decimal.NewFromInt(50)}
	return &fakeCatalog{
		items: map[string]posapi.Item{"1": soap, "2": rice},
		gate:  map[string]chan struct{}{},
	}
}

func (f *fakeCatalog) Search(_ context.Context, q string) ([]posapi.Item, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.gate[q]
	started := f.started
	f.mu.Unlock()
	if started != nil {
		started <- q
	}
	if gate != nil {
		<-gate
	}
	var out []posapi.Item
	for _, key := range []string{"1", "2"} {
		it := f.items[key]
		if strings.Contains(strings.ToLower(it.Name), strings.ToLower(q)) || strings.Contains(it.Barcode, q) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Item(_ context.Context, id string) (posapi.Item, error) {
	if f.fetchErr != nil {
		return posapi.Item{}, f.fetchErr
	}
	it, ok := f.items[id]
	if !ok {
		return posapi.Item{}, errors.New("not found")
	}
	return it, nil
}

func (f *fakeCatalog) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakeSaver struct {
	err  error
	reqs []posapi.SaveInvoiceRequest
	keys []string
}

func (f *fakeSaver) SaveInvoice(_ context.Context, in posapi.SaveInvoiceRequest, key string) (posapi.SaveInvoiceResponse, error) {
	f.reqs = append(f.reqs, in)
	f.keys = append(f.keys, key)
	if f.err != nil {
		return posapi.SaveInvoiceResponse{}, f.err
	}
	return posapi.SaveInvoiceResponse{Success: true, Message: "Invoice saved successfully", InvoiceNo: "INV-20260314-000001", InvoiceID: 1}, nil
}

type fakePrinter struct {
	err  error
	jobs [][]byte
}

func (p *fakePrinter) Print(_ context.Context, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, data)
	return nil
}
func (p *fakePrinter) Close() error      { return nil }
func (p *fakePrinter) IsConnected() bool { return true }

type answer bool

func (a answer) Confirm(string) bool { return bool(a) }

type recordingPresenter struct {
	mu       sync.Mutex
	results  [][]posapi.Item
	messages []string
}

func (p *recordingPresenter) ShowResults(items []posapi.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, items)
}
func (p *recordingPresenter) HideResults() {}
func (p *recordingPresenter) Notify(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

type fixture struct {
	session   *Session
	catalog   *fakeCatalog
	saver     *fakeSaver
	printer   *fakePrinter
	presenter *recordingPresenter
	preview   *bytes.Buffer
}

func newFixture(t *testing.T, confirm bool) fixture {
	t.Helper()
	f := fixture{
		catalog:   newCatalog(),
		saver:     &fakeSaver{},
		printer:   &fakePrinter{},
		presenter: &recordingPresenter{},
		preview:   &bytes.Buffer{},
	}
	s, err := New(Config{
		Store:     cart.NewStore(),
		Catalog:   f.catalog,
		Saver:     f.saver,
		Printer:   f.printer,
		Preview:   f.preview,
		Confirm:   answer(confirm),
		Presenter: f.presenter,
		Composer:  receipt.Composer{Store: receipt.StoreHeader{Name: "Test Mart"}},
		Logger:    zerolog.Nop(),
		Debounce:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	f.session = s
	return f
}

func TestIsBarcode(t *testing.T) {
	require.True(t, IsBarcode("12345678"))
	require.False(t, IsBarcode("1234567"))
	require.False(t, IsBarcode("1234567a"))
}

func TestShortQueryDoesNotSearch(t *testing.T) {
	f := newFixture(t, false)
	f.session.Input(context.Background(), " s ")
	f.session.Wait()
	require.Empty(t, f.catalog.searched())
}

func TestInputIsDebounced(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.session.Input(ctx, "so")
	f.session.Input(ctx, "soa")
	f.session.Input(ctx, "soap")
	f.session.Wait()
	require.Equal(t, []string{"soap"}, f.catalog.searched())
	require.Len(t, f.session.Results(), 1)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	f := newFixture(t, false)
	gate := make(chan struct{})
	f.catalog.gate["ri"] = gate
	f.catalog.started = make(chan string, 1)
	ctx := context.Background()

	f.session.Input(ctx, "ri")
	require.Equal(t, "ri", <-f.catalog.started)
	f.session.Input(ctx, "")
	close(gate)
	f.session.Wait()

	require.Empty(t, f.session.Results())
	f.presenter.mu.Lock()
	defer f.presenter.mu.Unlock()
	require.Empty(t, f.presenter.results)
}

func TestBarcodeAddsFirstMatch(t *testing.T) {
	f := newFixture(t, false)
	f.session.Input(context.Background(), "89010002")
	f.session.Wait()
	snap := f.session.Store().Snapshot()
	require.Len(t, snap.Lines, 1)
	require.Equal(t, "2", snap.Lines[0].ItemID)
	require.True(t, snap.Lines[0].TaxRate.Equal(cart.DefaultTaxRate))
}

func TestUnknownBarcodeNotifies(t *testing.T) {
	f := newFixture(t, false)
	f.session.Input(context.Background(), "99999999")
	f.session.Wait()
	require.True(t, f.session.Store().Snapshot().Empty())
	require.Contains(t, f.presenter.messages, "No products found.")
}

func TestPickFetchesAndAdds(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.session.Input(ctx, "soap")
	f.session.Wait()

	require.ErrorIs(t, f.session.Pick(ctx, 2), ErrNoSuchResult)
	require.NoError(t, f.session.Pick(ctx, 1))
	snap := f.session.Store().Snapshot()
	require.Len(t, snap.Lines, 1)
	require.Equal(t, "Soap", snap.Lines[0].Name)
	require.ErrorIs(t, f.session.Pick(ctx, 1), ErrNoSuchResult)
}

func TestPickFetchFailureNotifies(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.session.Input(ctx, "rice")
	f.session.Wait()
	f.catalog.fetchErr = errors.New("boom")

	require.Error(t, f.session.Pick(ctx, 1))
	require.True(t, f.session.Store().Snapshot().Empty())
	require.Contains(t, f.presenter.messages, "Failed to add product. Please try again.")
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.session.Checkout(context.Background(), receipt.Cash)
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Empty(t, f.saver.reqs)
	require.Empty(t, f.printer.jobs)
}

func addSoap(t *testing.T, f fixture) {
	t.Helper()
	require.NoError(t, f.session.AddByID(context.Background(), "1", decimal.NewFromInt(2)))
}

func TestCheckoutSavesPrintsAndClears(t *testing.T) {
	f := newFixture(t, false)
	addSoap(t, f)
	require.NoError(t, f.session.Store().SetFlatDiscount(decimal.RequireFromString("0.40")))

	res, err := f.session.Checkout(context.Background(), receipt.Card)
	require.NoError(t, err)
	require.True(t, res.Saved)
	require.Equal(t, "INV-20260314-000001", res.InvoiceNo)

	require.Len(t, f.saver.reqs, 1)
	req := f.saver.reqs[0]
	require.Equal(t, "Walk-In Customer", req.CustomerName)
	require.Equal(t, "CARD", req.PaymentMode)
	require.True(t, req.FinalAmount.Equal(decimal.NewFromInt(189)), req.FinalAmount.String())
	require.Len(t, req.Cart, 1)
	line := req.Cart[0]
	require.True(t, line.Discount.Equal(decimal.NewFromInt(10)))
	require.True(t, line.Total.Equal(decimal.NewFromInt(189)))
	require.NotEmpty(t, f.saver.keys[0])

	require.Len(t, f.printer.jobs, 1)
	require.Contains(t, f.preview.String(), "INV-20260314-000001")
	require.True(t, f.session.Store().Snapshot().Empty())
}

func TestCheckoutSaveFailureDeclined(t *testing.T) {
	f := newFixture(t, false)
	f.saver.err = errors.New("connection refused")
	addSoap(t, f)

	_, err := f.session.Checkout(context.Background(), receipt.Cash)
	require.ErrorIs(t, err, ErrCheckoutAborted)
	require.Empty(t, f.printer.jobs)
	require.False(t, f.session.Store().Snapshot().Empty())
}

func TestCheckoutSaveFailureConfirmed(t *testing.T) {
	f := newFixture(t, true)
	f.saver.err = errors.New("connection refused")
	addSoap(t, f)

	res, err := f.session.Checkout(context.Background(), receipt.Cash)
	require.NoError(t, err)
	require.False(t, res.Saved)
	require.True(t, strings.HasPrefix(res.InvoiceNo, "ORD"))
	require.Len(t, f.printer.jobs, 1)
	require.True(t, f.session.Store().Snapshot().Empty())
}

func TestCheckoutPrintFailureKeepsCartAndKey(t *testing.T) {
	f := newFixture(t, false)
	f.printer.err = errors.New("paper out")
	addSoap(t, f)
	ctx := context.Background()

	_, err := f.session.Checkout(ctx, receipt.Cash)
	require.Error(t, err)
	require.False(t, f.session.Store().Snapshot().Empty())

	f.printer.err = nil
	_, err = f.session.Checkout(ctx, receipt.Cash)
	require.NoError(t, err)
	require.Len(t, f.saver.keys, 2)
	require.Equal(t, f.saver.keys[0], f.saver.keys[1])
}
