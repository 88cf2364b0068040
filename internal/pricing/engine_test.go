package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s got %s", want, got.String())
}

func TestBreakdownPercentLine(t *testing.T) {
	b := Breakdown(Line{
		ItemID:        "1",
		Quantity:      dec("2"),
		UnitPrice:     dec("100"),
		TaxRate:       dec("0.05"),
		DiscountType:  Percent,
		DiscountValue: dec("10"),
	})
	requireDec(t, "10", b.DiscountPerUnit)
	requireDec(t, "90", b.NetBeforeTaxPerUnit)
	requireDec(t, "180", b.NetBeforeTaxTotal)
	requireDec(t, "9", b.TaxAmount)
	requireDec(t, "189", b.LineFinal)
	requireDec(t, "20", b.DiscountTotal)
}

func TestBreakdownFlatLine(t *testing.T) {
	b := Breakdown(Line{Quantity: dec("3"), UnitPrice: dec("50"), TaxRate: dec("0.12"), DiscountType: Flat, DiscountValue: dec("5")})
	requireDec(t, "5", b.DiscountPerUnit)
	requireDec(t, "135", b.NetBeforeTaxTotal)
	requireDec(t, "16.2", b.TaxAmount)
	requireDec(t, "151.2", b.LineFinal)
}

func TestBreakdownClampsDiscount(t *testing.T) {
	over := Breakdown(Line{Quantity: dec("1"), UnitPrice: dec("40"), DiscountType: Flat, DiscountValue: dec("55")})
	requireDec(t, "40", over.DiscountPerUnit)
	requireDec(t, "0", over.NetBeforeTaxPerUnit)

	negative := Breakdown(Line{Quantity: dec("1"), UnitPrice: dec("40"), DiscountType: Percent, DiscountValue: dec("-10")})
	requireDec(t, "0", negative.DiscountPerUnit)
	requireDec(t, "40", negative.LineFinal)
}

func TestRoundBill(t *testing.T) {
	cases := []struct {
		in, roundOff, final string
	}{
		{"188.60", "0.40", "189"},
		{"189.40", "-0.40", "189"},
		{"188.50", "0.50", "189"},
		{"0", "0", "0"},
		{"12.49", "-0.49", "12"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			ro, final := RoundBill(dec(tc.in))
			requireDec(t, tc.roundOff, ro)
			requireDec(t, tc.final, final)
		})
	}
}

func TestComputeAppliesFlatDiscountOnce(t *testing.T) {
	lines := []Line{
		{ItemID: "1", Quantity: dec("2"), UnitPrice: dec("100"), TaxRate: dec("0.05"), DiscountType: Percent, DiscountValue: dec("10")},
	}
	s := Compute(lines, dec("0.40"))
	requireDec(t, "189", s.Subtotal)
	requireDec(t, "188.60", s.AfterFlatDiscount)
	requireDec(t, "0.40", s.RoundOff)
	requireDec(t, "189", s.FinalAmount)
	requireDec(t, "200", s.Gross)
	requireDec(t, "20", s.LineDiscount)
	requireDec(t, "20.40", s.TotalDiscount())
	requireDec(t, "9", s.Tax)
	requireDec(t, "2", s.TotalQuantity)
}

func TestComputeFlatDiscountNeverNegative(t *testing.T) {
	lines := []Line{{ItemID: "1", Quantity: dec("1"), UnitPrice: dec("10"), TaxRate: dec("0")}}
	s := Compute(lines, dec("25"))
	requireDec(t, "0", s.AfterFlatDiscount)
	requireDec(t, "0", s.FinalAmount)

	neg := Compute(lines, dec("-5"))
	requireDec(t, "0", neg.FlatDiscount)
	requireDec(t, "10", neg.FinalAmount)
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, decimal.Zero)
	require.True(t, s.Empty())
	require.Empty(t, s.TaxGroups)
	requireDec(t, "0", s.FinalAmount)
}

func TestGroupTaxesMergesSameRate(t *testing.T) {
	lines := []Line{
		{ItemID: "1", Quantity: dec("1"), UnitPrice: dec("100"), TaxRate: dec("0.05")},
		{ItemID: "2", Quantity: dec("2"), UnitPrice: dec("50"), TaxRate: dec("0.05")},
		{ItemID: "3", Quantity: dec("1"), UnitPrice: dec("200"), TaxRate: dec("0.18")},
	}
	s := Compute(lines, decimal.Zero)
	require.Len(t, s.TaxGroups, 2)

	five := s.TaxGroups[0]
	require.Equal(t, int64(5), five.RatePercent)
	requireDec(t, "200", five.Taxable)
	requireDec(t, "5", five.CGST)
	requireDec(t, "5", five.SGST)
	requireDec(t, "0", five.IGST)
	requireDec(t, "0", five.CESS)

	eighteen := s.TaxGroups[1]
	require.Equal(t, int64(18), eighteen.RatePercent)
	requireDec(t, "18", eighteen.CGST)
}

func TestRatePercentRounds(t *testing.T) {
	require.Equal(t, int64(5), RatePercent(dec("0.0499")))
	require.Equal(t, int64(13), RatePercent(dec("0.125")))
	require.Equal(t, int64(0), RatePercent(dec("-0.1")))
}

func TestLegacyReceiptTotal(t *testing.T) {
	lines := []Line{{ItemID: "1", Quantity: dec("1"), UnitPrice: dec("100"), TaxRate: dec("0.05"), DiscountType: Flat, DiscountValue: dec("10")}}
	s := Compute(lines, dec("10"))
	requireDec(t, "84.5", s.AfterFlatDiscount)
	roundOff, legacy := LegacyReceiptTotal(s)
	requireDec(t, s.FinalAmount.String(), legacy)
	requireDec(t, s.RoundOff.String(), roundOff)

	over := Compute(lines, dec("100"))
	requireDec(t, "0", over.FinalAmount)
	_, legacy = LegacyReceiptTotal(over)
	requireDec(t, "-6", legacy)
}

func TestCoercion(t *testing.T) {
	require.True(t, FromFloat(math.NaN()).IsZero())
	require.True(t, FromFloat(math.Inf(1)).IsZero())
	requireDec(t, "1.5", FromFloat(1.5))
	require.True(t, ParseAmount("abc").IsZero())
	require.True(t, ParseAmount("").IsZero())
	requireDec(t, "2.25", ParseAmount(" 2.25 "))
	requireDec(t, "3", ParseAmount("3e0"))
}

func TestParseDiscountType(t *testing.T) {
	require.Equal(t, Flat, ParseDiscountType("flat"))
	require.Equal(t, Percent, ParseDiscountType("percent"))
	require.Equal(t, Percent, ParseDiscountType("bogus"))
	require.True(t, Flat.Valid())
	require.False(t, DiscountType("x").Valid())
}
