package render

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/cart"
)

// Renderer redraws the whole cart from a View.
type Renderer interface {
	Render(View) error
}

// TextRenderer draws the cart as an aligned text table.
type TextRenderer struct {
	W           io.Writer
	ClearScreen bool

	mu sync.Mutex
}

const clearSequence = "\033[H\033[2J"

// Render writes a full redraw of v.
func (r *TextRenderer) Render(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ClearScreen {
		if _, err := io.WriteString(r.W, clearSequence); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(r.W, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tItem\tQty\tMRP\tDisc\tDisc/Unit\tNet\tTax\tFinal\t")
	if v.Empty {
		if err := tw.Flush(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(r.W, v.EmptyMessage); err != nil {
			return err
		}
	} else {
		for _, row := range v.Rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s %s\t%s\t%s\t%s\t%s\t\n",
				row.Index, rowLabel(row), row.Quantity, row.UnitPrice,
				row.DiscountValue, row.DiscountType, row.DiscountPerUnit,
				row.NetTotal, row.Tax, row.LineFinal)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	tw = tabwriter.NewWriter(r.W, 0, 0, 2, ' ', tabwriter.AlignRight)
	t := v.Totals
	fmt.Fprintf(tw, "Total Qty\t%s\t\n", t.TotalQuantity)
	fmt.Fprintf(tw, "Gross\t%s\t\n", t.Gross)
	fmt.Fprintf(tw, "Line Discount\t%s\t\n", t.LineDiscount)
	fmt.Fprintf(tw, "Tax\t%s\t\n", t.Tax)
	fmt.Fprintf(tw, "Subtotal\t%s\t\n", t.Subtotal)
	fmt.Fprintf(tw, "Flat Discount\t%s\t\n", t.FlatDiscount)
	fmt.Fprintf(tw, "Round Off\t%s\t\n", t.RoundOff)
	fmt.Fprintf(tw, "Final Amount\t%s\t\n", t.FinalAmount)
	return tw.Flush()
}

func rowLabel(row Row) string {
	if row.Barcode == "" {
		return row.Name
	}
	return fmt.Sprintf("%s [%s]", row.Name, row.Barcode)
}

// Subscriber adapts a Renderer into a cart subscriber so every mutation
// triggers a redraw. Render failures are logged, not propagated.
func Subscriber(r Renderer, logger zerolog.Logger) cart.Subscriber {
	return func(snap cart.Snapshot) {
		if err := r.Render(Build(snap.Summary())); err != nil {
			logger.Error().Err(err).Uint64("version", snap.Version).Msg("cart render failed")
		}
	}
}
