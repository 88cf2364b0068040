package cart

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ErrInvalidItem is returned when a catalog item without an identifier is added.
var ErrInvalidItem = errors.New("cart: item id is required")

// DefaultTaxRate applies when the catalog entry carries no tax rate or one
// outside [0, 1).
var DefaultTaxRate = decimal.RequireFromString("0.05")

var one = decimal.NewFromInt(1)

// CatalogItem is the subset of a catalog entry copied into a cart line.
type CatalogItem struct {
	ID           string
	Barcode      string
	Name         string
	Price        decimal.Decimal
	TaxRate      *decimal.Decimal
	DiscountType pricing.DiscountType
	Discount     decimal.Decimal
}

// Command is a single cart mutation.
type Command interface {
	apply(st *State, defaults defaults) error
}

type defaults struct {
	taxRate decimal.Decimal
}

// AddItem merges Quantity into an existing line or appends a new one.
// A zero Quantity leaves the cart unchanged.
type AddItem struct {
	Item     CatalogItem
	Quantity decimal.Decimal
}

// ChangeQuantity adjusts a line by Delta; the line is removed once it reaches zero.
type ChangeQuantity struct {
	ItemID string
	Delta  decimal.Decimal
}

// SetQuantity replaces a line quantity with the parsed Raw input.
// Values that are not positive numbers remove the line.
type SetQuantity struct {
	ItemID string
	Raw    string
}

// SetDiscount replaces the discount fields of a line. Negative values are clamped to zero.
type SetDiscount struct {
	ItemID string
	Value  decimal.Decimal
	Type   pricing.DiscountType
}

// RemoveItem drops a line.
type RemoveItem struct {
	ItemID string
}

// Clear empties the cart and resets the flat discount.
type Clear struct{}

// SetFlatDiscount sets the bill-level discount amount.
type SetFlatDiscount struct {
	Value decimal.Decimal
}

func (c AddItem) apply(st *State, d defaults) error {
	id := strings.TrimSpace(c.Item.ID)
	if id == "" {
		return ErrInvalidItem
	}
	qty := c.Quantity
	if qty.IsZero() {
		return nil
	}
	if idx := st.index(id); idx >= 0 {
		st.Lines[idx].Quantity = st.Lines[idx].Quantity.Add(qty)
		st.dropEmpty(idx)
		return nil
	}
	if !qty.IsPositive() {
		return nil
	}
	rate := d.taxRate
	if r := c.Item.TaxRate; r != nil && !r.IsNegative() && r.LessThan(one) {
		rate = *r
	}
	dt := c.Item.DiscountType
	if !dt.Valid() {
		dt = pricing.Percent
	}
	st.Lines = append(st.Lines, pricing.Line{
		ItemID:        id,
		Barcode:       c.Item.Barcode,
		Name:          c.Item.Name,
		Quantity:      qty,
		UnitPrice:     clampZero(c.Item.Price),
		TaxRate:       clampZero(rate),
		DiscountType:  dt,
		DiscountValue: clampZero(c.Item.Discount),
	})
	return nil
}

func (c ChangeQuantity) apply(st *State, _ defaults) error {
	idx := st.index(c.ItemID)
	if idx < 0 {
		return nil
	}
	st.Lines[idx].Quantity = clampZero(st.Lines[idx].Quantity.Add(c.Delta))
	st.dropEmpty(idx)
	return nil
}

func (c SetQuantity) apply(st *State, _ defaults) error {
	idx := st.index(c.ItemID)
	if idx < 0 {
		return nil
	}
	st.Lines[idx].Quantity = clampZero(pricing.ParseAmount(c.Raw))
	st.dropEmpty(idx)
	return nil
}

func (c SetDiscount) apply(st *State, _ defaults) error {
	idx := st.index(c.ItemID)
	if idx < 0 {
		return nil
	}
	dt := c.Type
	if !dt.Valid() {
		dt = pricing.Percent
	}
	st.Lines[idx].DiscountType = dt
	st.Lines[idx].DiscountValue = clampZero(c.Value)
	return nil
}

func (c RemoveItem) apply(st *State, _ defaults) error {
	if idx := st.index(c.ItemID); idx >= 0 {
		st.Lines = append(st.Lines[:idx], st.Lines[idx+1:]...)
	}
	return nil
}

func (Clear) apply(st *State, _ defaults) error {
	st.Lines = nil
	st.FlatDiscount = decimal.Zero
	return nil
}

func (c SetFlatDiscount) apply(st *State, _ defaults) error {
	st.FlatDiscount = clampZero(c.Value)
	return nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
