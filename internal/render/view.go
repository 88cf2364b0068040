package render

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// EmptyMessage is shown in place of the line table when the cart has no lines.
const EmptyMessage = "No items in cart. Start by scanning a barcode or searching for a product."

// Row is one formatted cart line.
type Row struct {
	Index           int
	ItemID          string
	Barcode         string
	Name            string
	Quantity        string
	UnitPrice       string
	DiscountValue   string
	DiscountType    string
	DiscountPerUnit string
	NetTotal        string
	Tax             string
	TaxRate         string
	LineFinal       string
}

// Totals are the formatted bill figures.
type Totals struct {
	TotalQuantity string
	Gross         string
	LineDiscount  string
	FlatDiscount  string
	TotalDiscount string
	Tax           string
	Subtotal      string
	RoundOff      string
	FinalAmount   string
}

// View is everything a renderer needs to redraw the cart.
type View struct {
	Rows         []Row
	Empty        bool
	EmptyMessage string
	Totals       Totals
}

// Build formats a pricing summary into a View.
func Build(s pricing.Summary) View {
	v := View{
		Rows:  make([]Row, 0, len(s.Lines)),
		Empty: s.Empty(),
		Totals: Totals{
			TotalQuantity: Quantity(s.TotalQuantity),
			Gross:         Money(s.Gross),
			LineDiscount:  Money(s.LineDiscount),
			FlatDiscount:  Money(s.FlatDiscount),
			TotalDiscount: Money(s.TotalDiscount()),
			Tax:           Money(s.Tax),
			Subtotal:      Money(s.Subtotal),
			RoundOff:      Money(s.RoundOff),
			FinalAmount:   Money(s.FinalAmount),
		},
	}
	if v.Empty {
		v.EmptyMessage = EmptyMessage
	}
	for i, l := range s.Lines {
		v.Rows = append(v.Rows, Row{
			Index:           i + 1,
			ItemID:          l.ItemID,
			Barcode:         l.Barcode,
			Name:            l.Name,
			Quantity:        Quantity(l.Quantity),
			UnitPrice:       Money(l.UnitPrice),
			DiscountValue:   l.DiscountValue.String(),
			DiscountType:    discountLabel(l.DiscountType),
			DiscountPerUnit: Money(l.DiscountPerUnit),
			NetTotal:        Money(l.NetBeforeTaxTotal),
			Tax:             Money(l.TaxAmount),
			TaxRate:         Percent(l.TaxRate),
			LineFinal:       Money(l.LineFinal),
		})
	}
	return v
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Quantity formats a quantity without trailing zeros.
func Quantity(d decimal.Decimal) string {
	return d.String()
}

// Percent formats a fractional rate as a whole-or-fractional percentage.
func Percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).String() + "%"
}

func discountLabel(t pricing.DiscountType) string {
	if t == pricing.Flat {
		return "FLAT"
	}
	return "%"
}
