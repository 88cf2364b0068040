package render

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"
	"sync"
)

var pageTemplate = template.Must(template.New("cart").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.Refresh}}">
<title>Cart</title>
</head>
<body>
<table class="cart">
<thead><tr><th>#</th><th>Code</th><th>Item</th><th>Qty</th><th>MRP</th><th>Discount</th><th>Net/Unit</th><th>Final</th></tr></thead>
<tbody>
{{- if .View.Empty}}
<tr class="empty-cart-message"><td colspan="8">{{.View.EmptyMessage}}</td></tr>
{{- else}}{{range .View.Rows}}
<tr class="product-row" data-item-id="{{.ItemID}}"><td>{{.Index}}</td><td>{{if .Barcode}}{{.Barcode}}{{else}}{{.ItemID}}{{end}}</td><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.DiscountValue}} {{.DiscountType}}</td><td>{{.DiscountPerUnit}}</td><td>{{.LineFinal}}</td></tr>
{{- end}}{{end}}
</tbody>
</table>
<dl class="summary">
<dt>Total Qty</dt><dd id="total-quantity">{{.View.Totals.TotalQuantity}}</dd>
<dt>Total MRP</dt><dd id="total-mrp">{{.View.Totals.Gross}}</dd>
<dt>Tax</dt><dd id="total-tax">{{.View.Totals.Tax}}</dd>
<dt>Discount</dt><dd id="total-discount">{{.View.Totals.TotalDiscount}}</dd>
<dt>Flat Discount</dt><dd id="flat-discount">{{.View.Totals.FlatDiscount}}</dd>
<dt>Round Off</dt><dd id="round-off">{{.View.Totals.RoundOff}}</dd>
<dt>Final Amount</dt><dd id="final-amount">{{.View.Totals.FinalAmount}}</dd>
</dl>
</body>
</html>
`))

// HTMLRenderer rewrites a self-refreshing HTML page on every redraw, used as
// a customer-facing display next to the register.
type HTMLRenderer struct {
	Path           string
	RefreshSeconds int

	mu sync.Mutex
}

// Render writes the page atomically so a browser never reads half a file.
func (r *HTMLRenderer) Render(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	refresh := r.RefreshSeconds
	if refresh <= 0 {
		refresh = 1
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, struct {
		View    View
		Refresh int
	}{View: v, Refresh: refresh}); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.Path), ".cart-*.html")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.Path)
}

// Multi fans a redraw out to several renderers and returns the first error.
type Multi []Renderer

// Render implements Renderer.
func (m Multi) Render(v View) error {
	var first error
	for _, r := range m {
		if err := r.Render(v); err != nil && first == nil {
			first = err
		}
	}
	return first
}
