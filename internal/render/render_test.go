package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

func TestBuildEmpty(t *testing.T) {
	v := Build(pricing.Compute(nil, decimal.Zero))
	require.True(t, v.Empty)
	require.Equal(t, EmptyMessage, v.EmptyMessage)
	require.Empty(t, v.Rows)
	require.Equal(t, "0.00", v.Totals.FinalAmount)
}

func TestBuildFormatsRows(t *testing.T) {
	s := pricing.Compute([]pricing.Line{{
		ItemID:        "1",
		Barcode:       "89010001",
		Name:          "Soap",
		Quantity:      decimal.NewFromInt(2),
		UnitPrice:     decimal.NewFromInt(100),
		TaxRate:       decimal.RequireFromString("0.05"),
		DiscountType:  pricing.Percent,
		DiscountValue: decimal.NewFromInt(10),
	}}, decimal.Zero)

	v := Build(s)
	require.False(t, v.Empty)
	require.Len(t, v.Rows, 1)
	row := v.Rows[0]
	require.Equal(t, 1, row.Index)
	require.Equal(t, "100.00", row.UnitPrice)
	require.Equal(t, "10.00", row.DiscountPerUnit)
	require.Equal(t, "180.00", row.NetTotal)
	require.Equal(t, "9.00", row.Tax)
	require.Equal(t, "5%", row.TaxRate)
	require.Equal(t, "189.00", row.LineFinal)
	require.Equal(t, "2", v.Totals.TotalQuantity)
	require.Equal(t, "20.00", v.Totals.TotalDiscount)
}

func TestTextRendererEmptyState(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{W: &buf}
	require.NoError(t, r.Render(Build(pricing.Summary{})))
	require.Contains(t, buf.String(), EmptyMessage)
	require.Contains(t, buf.String(), "Final Amount")
}

func TestSubscriberRedrawsOnEveryMutation(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{W: &buf}
	store := cart.NewStore()
	store.Subscribe(Subscriber(r, zerolog.Nop()))

	item := cart.CatalogItem{ID: "7", Name: "Rice", Price: decimal.NewFromInt(50)}
	require.NoError(t, store.AddItem(item, decimal.NewFromInt(1)))
	require.Contains(t, buf.String(), "Rice")

	buf.Reset()
	require.NoError(t, store.RemoveItem("7"))
	out := buf.String()
	require.NotContains(t, out, "Rice")
	require.Contains(t, out, EmptyMessage)
}

type failingRenderer struct{ calls int }

func (f *failingRenderer) Render(View) error {
	f.calls++
	return errors.New("terminal gone")
}

func TestSubscriberSwallowsRenderErrors(t *testing.T) {
	var logs strings.Builder
	logger := zerolog.New(&logs)
	fr := &failingRenderer{}
	store := cart.NewStore()
	store.Subscribe(Subscriber(fr, logger))
	require.NoError(t, store.AddItem(cart.CatalogItem{ID: "1", Price: decimal.NewFromInt(1)}, decimal.NewFromInt(1)))
	require.Equal(t, 1, fr.calls)
	require.Contains(t, logs.String(), "cart render failed")
}

func TestHTMLRendererWritesPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "display.html")
	r := &HTMLRenderer{Path: path}

	require.NoError(t, r.Render(Build(pricing.Summary{})))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), EmptyMessage)

	s := pricing.Compute([]pricing.Line{{
		ItemID:    "9",
		Name:      "Tea <Premium>",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(40),
	}}, decimal.Zero)
	require.NoError(t, r.Render(Build(s)))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Tea &lt;Premium&gt;")
	require.NotContains(t, string(data), EmptyMessage)
}

func TestMultiRendersAll(t *testing.T) {
	var a, b bytes.Buffer
	m := Multi{&TextRenderer{W: &a}, &TextRenderer{W: &b}}
	require.NoError(t, m.Render(Build(pricing.Summary{})))
	require.Equal(t, a.String(), b.String())
}
