package receipt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ErrEmptyCart is returned when a receipt is requested for a cart with no lines.
var ErrEmptyCart = errors.New("receipt: no items to generate receipt for")

// Footer closes every receipt.
const Footer = "Thank you for shopping with us!"

// NoTaxLabel replaces the tax table when no tax group exists.
const NoTaxLabel = "No Tax Applicable"

// PaymentMode is how the customer settled the bill.
type PaymentMode string

const (
	Cash PaymentMode = "CASH"
	Card PaymentMode = "CARD"
)

// ParsePaymentMode normalises operator input; unknown modes fall back to Cash.
func ParsePaymentMode(raw string) PaymentMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(Card)) {
		return Card
	}
	return Cash
}

// StoreHeader identifies the shop at the top of every receipt.
type StoreHeader struct {
	Name    string
	Address string
	GSTIN   string
	Email   string
}

// Line is one printed item row.
type Line struct {
	Index           int
	Name            string
	Quantity        decimal.Decimal
	MRP             decimal.Decimal
	DiscountPerUnit decimal.Decimal
	NetTotal        decimal.Decimal
}

// Receipt is a fully composed bill ready for any output format.
type Receipt struct {
	Store         StoreHeader
	InvoiceNo     string
	PaymentMode   PaymentMode
	IssuedAt      time.Time
	Lines         []Line
	TotalQuantity decimal.Decimal
	Gross         decimal.Decimal
	TotalDiscount decimal.Decimal
	RoundOff      decimal.Decimal
	FinalAmount   decimal.Decimal
	TaxGroups     []pricing.TaxGroup
}

// Composer turns pricing summaries into receipts.
type Composer struct {
	Store StoreHeader
	Now   func() time.Time
}

// Compose builds a receipt for s. The final amount is the summary's own
// figure, so the flat discount is never applied a second time.
func (c Composer) Compose(s pricing.Summary, invoiceNo string, mode PaymentMode) (Receipt, error) {
	if s.Empty() {
		return Receipt{}, ErrEmptyCart
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if mode == "" {
		mode = Cash
	}
	r := Receipt{
		Store:         c.Store,
		InvoiceNo:     invoiceNo,
		PaymentMode:   mode,
		IssuedAt:      now(),
		Lines:         make([]Line, 0, len(s.Lines)),
		TotalQuantity: s.TotalQuantity,
		Gross:         s.Gross,
		TotalDiscount: s.TotalDiscount(),
		RoundOff:      s.RoundOff,
		FinalAmount:   s.FinalAmount,
		TaxGroups:     s.TaxGroups,
	}
	for i, l := range s.Lines {
		r.Lines = append(r.Lines, Line{
			Index:           i + 1,
			Name:            l.Name,
			Quantity:        l.Quantity,
			MRP:             l.UnitPrice,
			DiscountPerUnit: l.DiscountPerUnit,
			NetTotal:        l.LineFinal,
		})
	}
	return r, nil
}

// LocalInvoiceNo generates a provisional number for receipts printed
// without a server-issued invoice.
func LocalInvoiceNo() string {
	return fmt.Sprintf("ORD%06d", rand.IntN(1_000_000))
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// Layout writes r into doc in the thermal receipt layout.
func Layout(doc *Document, r Receipt) *Document {
	doc.SetAlign(AlignCenter).SetBold(true).SetFontSize(FontDouble)
	doc.Text(r.Store.Name)
	doc.SetFontSize(FontNormal).SetBold(false)
	if r.Store.Address != "" {
		doc.Text(r.Store.Address)
	}
	if r.Store.GSTIN != "" {
		doc.Text("GSTIN: " + r.Store.GSTIN)
	}
	if r.Store.Email != "" {
		doc.Text("Email: " + r.Store.Email)
	}
	doc.SetAlign(AlignLeft).Separator('-')

	doc.KeyValue("Invoice No:", r.InvoiceNo)
	doc.KeyValue("Payment Mode:", string(r.PaymentMode))
	doc.KeyValue("Date:", r.IssuedAt.Format("02/01/2006 15:04:05"))
	doc.Separator('-')

	widths := itemWidths(doc.Width())
	doc.SetBold(true)
	doc.Columns(widths, "# Item", "Qty", "MRP", "Disc/U", "Net Total")
	doc.SetBold(false)
	for _, l := range r.Lines {
		doc.Columns(widths,
			fmt.Sprintf("%d %s", l.Index, l.Name),
			l.Quantity.StringFixed(2),
			money(l.MRP),
			money(l.DiscountPerUnit),
			money(l.NetTotal),
		)
	}
	doc.Separator('-')

	doc.KeyValue("Total Qty:", r.TotalQuantity.StringFixed(2))
	doc.KeyValue("Gross Total:", money(r.Gross))
	doc.KeyValue("Total Discount:", "Rs. "+money(r.TotalDiscount))
	doc.KeyValue("Round Off:", money(r.RoundOff))
	doc.SetBold(true)
	doc.KeyValue("Final Amount:", "Rs. "+money(r.FinalAmount))
	doc.SetBold(false).Separator('-')

	doc.SetAlign(AlignCenter).Text("Tax Summary").SetAlign(AlignLeft)
	taxWidths := taxWidths(doc.Width())
	doc.Columns(taxWidths, "Rate", "Taxable", "CGST", "SGST", "IGST", "CESS")
	if len(r.TaxGroups) == 0 {
		doc.Text(NoTaxLabel)
	}
	for _, g := range r.TaxGroups {
		doc.Columns(taxWidths,
			fmt.Sprintf("%d%%", g.RatePercent),
			money(g.Taxable), money(g.CGST), money(g.SGST), money(g.IGST), money(g.CESS),
		)
	}
	doc.Separator('-')
	doc.SetAlign(AlignCenter).Text(Footer).SetAlign(AlignLeft)
	return doc
}

func itemWidths(total int) []int {
	numeric := []int{6, 8, 7, 10}
	used := 0
	for _, w := range numeric {
		used += w
	}
	first := total - used
	if first < 6 {
		first = 6
	}
	return append([]int{first}, numeric...)
}

func taxWidths(total int) []int {
	col := total / 6
	if col < 5 {
		col = 5
	}
	rest := total - col*5
	if rest < 4 {
		rest = 4
	}
	return []int{rest, col, col, col, col, col}
}

// ESCPOS renders r as a printer-ready byte stream ending in a partial cut.
func (r Receipt) ESCPOS(width int) []byte {
	doc := Layout(NewDocument(width), r)
	doc.FeedLines(3).PartialCut()
	return doc.Bytes()
}

// Text renders r as plain text for previews.
func (r Receipt) Text(width int) string {
	return Layout(NewPlainDocument(width), r).String()
}
