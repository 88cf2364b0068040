package pricing

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a line discount value is interpreted.
type DiscountType string

const (
	// Percent interprets the discount value as a percentage of the unit price.
	Percent DiscountType = "PERCENT"
	// Flat interprets the discount value as a currency amount per unit.
	Flat DiscountType = "FLAT"
)

// ParseDiscountType normalises user input; anything unrecognised is Percent.
func ParseDiscountType(raw string) DiscountType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FLAT", "AMOUNT", "₹", "RS":
		return Flat
	default:
		return Percent
	}
}

// Valid reports whether t is one of the supported discount types.
func (t DiscountType) Valid() bool {
	return t == Percent || t == Flat
}

var hundred = decimal.NewFromInt(100)

// Line is the pricing input for a single cart line.
type Line struct {
	ItemID        string
	Barcode       string
	Name          string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	TaxRate       decimal.Decimal
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
}

// LineBreakdown carries the computed amounts for one line.
type LineBreakdown struct {
	Line
	DiscountPerUnit     decimal.Decimal
	DiscountTotal       decimal.Decimal
	NetBeforeTaxPerUnit decimal.Decimal
	NetBeforeTaxTotal   decimal.Decimal
	TaxAmount           decimal.Decimal
	LineFinal           decimal.Decimal
}

// TaxGroup accumulates taxable value and split tax for one whole-percent rate.
type TaxGroup struct {
	RatePercent int64
	Taxable     decimal.Decimal
	CGST        decimal.Decimal
	SGST        decimal.Decimal
	IGST        decimal.Decimal
	CESS        decimal.Decimal
}

// Summary is the bill-level result of a pricing pass.
type Summary struct {
	Lines             []LineBreakdown
	TotalQuantity     decimal.Decimal
	Gross             decimal.Decimal
	LineDiscount      decimal.Decimal
	Tax               decimal.Decimal
	Subtotal          decimal.Decimal
	FlatDiscount      decimal.Decimal
	AfterFlatDiscount decimal.Decimal
	RoundOff          decimal.Decimal
	FinalAmount       decimal.Decimal
	TaxGroups         []TaxGroup
}

// TotalDiscount is the sum of line discounts and the bill-level flat discount.
func (s Summary) TotalDiscount() decimal.Decimal {
	return s.LineDiscount.Add(s.FlatDiscount)
}

// Empty reports whether the summary has no lines.
func (s Summary) Empty() bool {
	return len(s.Lines) == 0
}

// Breakdown computes the per-line amounts. The per-unit discount is clamped to
// [0, unitPrice] so the net price never goes negative.
func Breakdown(l Line) LineBreakdown {
	qty := nonNegative(l.Quantity)
	price := nonNegative(l.UnitPrice)
	rate := nonNegative(l.TaxRate)
	value := nonNegative(l.DiscountValue)

	var perUnit decimal.Decimal
	switch l.DiscountType {
	case Flat:
		perUnit = value
	default:
		perUnit = price.Mul(value).Div(hundred)
	}
	if perUnit.GreaterThan(price) {
		perUnit = price
	}

	net := price.Sub(perUnit)
	netTotal := net.Mul(qty)
	tax := netTotal.Mul(rate)
	return LineBreakdown{
		Line:                l,
		DiscountPerUnit:     perUnit,
		DiscountTotal:       perUnit.Mul(qty),
		NetBeforeTaxPerUnit: net,
		NetBeforeTaxTotal:   netTotal,
		TaxAmount:           tax,
		LineFinal:           netTotal.Add(tax),
	}
}

// Compute prices the given lines and applies flatDiscount once to the subtotal.
func Compute(lines []Line, flatDiscount decimal.Decimal) Summary {
	s := Summary{
		Lines:        make([]LineBreakdown, 0, len(lines)),
		FlatDiscount: nonNegative(flatDiscount),
	}
	for _, l := range lines {
		b := Breakdown(l)
		s.Lines = append(s.Lines, b)
		s.TotalQuantity = s.TotalQuantity.Add(nonNegative(l.Quantity))
		s.Gross = s.Gross.Add(nonNegative(l.UnitPrice).Mul(nonNegative(l.Quantity)))
		s.LineDiscount = s.LineDiscount.Add(b.DiscountTotal)
		s.Tax = s.Tax.Add(b.TaxAmount)
		s.Subtotal = s.Subtotal.Add(b.NetBeforeTaxTotal).Add(b.TaxAmount)
	}
	after := s.Subtotal.Sub(s.FlatDiscount)
	if after.IsNegative() {
		after = decimal.Zero
	}
	s.AfterFlatDiscount = after
	s.RoundOff, s.FinalAmount = RoundBill(after)
	s.TaxGroups = GroupTaxes(s.Lines)
	return s
}

// RoundBill rounds amount to the nearest whole currency unit, half away from
// zero, and returns the signed delta together with the rounded amount.
func RoundBill(amount decimal.Decimal) (roundOff, final decimal.Decimal) {
	rounded := amount.Round(0)
	return rounded.Sub(amount), rounded
}

// GroupTaxes buckets lines by tax rate rounded to a whole percent, ordered by rate.
func GroupTaxes(lines []LineBreakdown) []TaxGroup {
	byRate := make(map[int64]*TaxGroup)
	for _, l := range lines {
		key := RatePercent(l.TaxRate)
		g, ok := byRate[key]
		if !ok {
			g = &TaxGroup{RatePercent: key}
			byRate[key] = g
		}
		half := l.TaxAmount.Div(decimal.NewFromInt(2))
		g.Taxable = g.Taxable.Add(l.NetBeforeTaxTotal)
		g.CGST = g.CGST.Add(half)
		g.SGST = g.SGST.Add(half)
	}
	out := make([]TaxGroup, 0, len(byRate))
	for _, g := range byRate {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RatePercent < out[j].RatePercent })
	return out
}

// RatePercent converts a fractional rate into a whole percentage.
func RatePercent(rate decimal.Decimal) int64 {
	return nonNegative(rate).Mul(hundred).Round(0).IntPart()
}

// LegacyReceiptTotal is the total older registers printed: the flat discount
// taken from the sum of line finals with no floor at zero. Invoice
// reconciliation uses it to tell such submissions apart from real mismatches.
func LegacyReceiptTotal(s Summary) (roundOff, final decimal.Decimal) {
	return RoundBill(s.Subtotal.Sub(s.FlatDiscount))
}

// FromFloat converts f to a decimal; NaN and infinities become zero.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ParseAmount parses raw numeric input; anything non-numeric becomes zero.
func ParseAmount(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		f, ferr := strconv.ParseFloat(trimmed, 64)
		if ferr != nil {
			return decimal.Zero
		}
		return FromFloat(f)
	}
	return d
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
