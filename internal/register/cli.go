package register

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/posapi"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/receipt"
	"github.com/noah-isme/toko-pos/internal/render"
)

const helpText = `commands:
  scan <barcode>                 add the first match for a barcode
  search <text>                  look items up by name or barcode
  pick <n>                       add result n of the last search
  add <id> [qty]                 add an item by catalog id
  + <id> | - <id>                change quantity by one
  qty <id> <value>               set quantity (0 removes)
  disc <id> <value> [percent|flat]
  rm <id>                        remove a line
  flat <amount>                  bill-level discount
  print [cash|card]              save, print and clear
  clear | show | help | quit`

// CLI reads register commands line by line. It also acts as the session's
// Presenter and Confirmer so prompts and results share one terminal.
type CLI struct {
	In  io.Reader
	Out io.Writer

	session  *Session
	renderer render.Renderer
	scanner  *bufio.Scanner
	mu       sync.Mutex
}

// NewCLI binds a CLI to in/out. Attach it to a session with Bind.
func NewCLI(in io.Reader, out io.Writer) *CLI {
	return &CLI{In: in, Out: out, scanner: bufio.NewScanner(in)}
}

// Bind attaches the session the CLI drives and the renderer used by "show".
func (c *CLI) Bind(s *Session, r render.Renderer) {
	c.session = s
	c.renderer = r
}

func (c *CLI) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.Out, format, args...)
}

// ShowResults implements Presenter.
func (c *CLI) ShowResults(items []posapi.Item) {
	if len(items) == 0 {
		c.printf("No products found.\n")
		return
	}
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s (Code: %s)\n", i+1, it.Name, it.Barcode)
	}
	c.printf("%s", b.String())
}

// HideResults implements Presenter.
func (c *CLI) HideResults() {}

// Notify implements Presenter.
func (c *CLI) Notify(message string) {
	c.printf("! %s\n", message)
}

// Confirm implements Confirmer by reading the next input line.
func (c *CLI) Confirm(prompt string) bool {
	c.printf("%s [y/N] ", prompt)
	if !c.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.scanner.Text()))
	return answer == "y" || answer == "yes"
}

// Run processes commands until quit, EOF or ctx cancellation.
func (c *CLI) Run(ctx context.Context) error {
	if c.session == nil {
		return errors.New("register: cli is not bound to a session")
	}
	c.printf("%s\n", helpText)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		c.printf("> ")
		if !c.scanner.Scan() {
			return c.scanner.Err()
		}
		quit, err := c.Execute(ctx, c.scanner.Text())
		if err != nil {
			c.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs a single command line. It reports whether the operator asked to quit.
func (c *CLI) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	s := c.session
	store := s.Store()
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		c.printf("%s\n", helpText)
	case "scan", "search":
		if len(args) == 0 {
			return false, fmt.Errorf("%s needs a query", cmd)
		}
		s.Input(ctx, strings.Join(args, " "))
		s.Wait()
	case "pick":
		if len(args) != 1 {
			return false, errors.New("usage: pick <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("pick: %w", err)
		}
		return false, s.Pick(ctx, n)
	case "add":
		if len(args) < 1 {
			return false, errors.New("usage: add <id> [qty]")
		}
		qty := decimal.NewFromInt(1)
		if len(args) > 1 {
			parsed, err := decimal.NewFromString(args[1])
			if err != nil {
				return false, fmt.Errorf("add: quantity %q is not a number", args[1])
			}
			qty = parsed
		}
		return false, s.AddByID(ctx, args[0], qty)
	case "+", "-":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <id>", cmd)
		}
		delta := decimal.NewFromInt(1)
		if cmd == "-" {
			delta = delta.Neg()
		}
		return false, store.ChangeQuantity(args[0], delta)
	case "qty":
		if len(args) != 2 {
			return false, errors.New("usage: qty <id> <value>")
		}
		return false, store.SetQuantity(args[0], args[1])
	case "disc":
		if len(args) < 2 {
			return false, errors.New("usage: disc <id> <value> [percent|flat]")
		}
		typ := pricing.Percent
		if len(args) > 2 {
			typ = pricing.ParseDiscountType(args[2])
		}
		return false, store.SetDiscount(args[0], pricing.ParseAmount(args[1]), typ)
	case "rm":
		if len(args) != 1 {
			return false, errors.New("usage: rm <id>")
		}
		return false, store.RemoveItem(args[0])
	case "flat":
		if len(args) != 1 {
			return false, errors.New("usage: flat <amount>")
		}
		return false, store.SetFlatDiscount(pricing.ParseAmount(args[0]))
	case "clear":
		return false, store.Clear()
	case "show":
		if c.renderer == nil {
			return false, nil
		}
		return false, c.renderer.Render(render.Build(store.Snapshot().Summary()))
	case "print":
		mode := receipt.Cash
		if len(args) > 0 {
			mode = receipt.ParsePaymentMode(args[0])
		}
		res, err := s.Checkout(ctx, mode)
		if err != nil {
			return false, err
		}
		status := "saved"
		if !res.Saved {
			status = "not saved"
		}
		c.printf("invoice %s printed (%s)\n", res.InvoiceNo, status)
	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}
	return false, nil
}
