package cart

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// State is the session cart: ordered lines plus the bill-level flat discount.
type State struct {
	Lines        []pricing.Line
	FlatDiscount decimal.Decimal
}

func (st *State) index(itemID string) int {
	id := strings.TrimSpace(itemID)
	for i := range st.Lines {
		if st.Lines[i].ItemID == id {
			return i
		}
	}
	return -1
}

func (st *State) dropEmpty(idx int) {
	if !st.Lines[idx].Quantity.IsPositive() {
		st.Lines = append(st.Lines[:idx], st.Lines[idx+1:]...)
	}
}

func (st State) clone() State {
	lines := make([]pricing.Line, len(st.Lines))
	copy(lines, st.Lines)
	return State{Lines: lines, FlatDiscount: st.FlatDiscount}
}

// Snapshot is an immutable view of the cart handed to subscribers.
type Snapshot struct {
	State
	Version uint64
}

// Summary prices the snapshot. It is recomputed on every call.
func (s Snapshot) Summary() pricing.Summary {
	return pricing.Compute(s.Lines, s.FlatDiscount)
}

// Empty reports whether the cart has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// Subscriber is notified synchronously after every dispatched command.
// Subscribers must not dispatch commands themselves.
type Subscriber func(Snapshot)

// Store owns the cart of a single register session.
type Store struct {
	dispatchMu sync.Mutex
	mu         sync.RWMutex
	state      State
	version    uint64
	subs       map[int]Subscriber
	order      []int
	nextSub    int
	defaults   defaults
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultTaxRate overrides the tax rate used when a catalog item has none.
func WithDefaultTaxRate(rate decimal.Decimal) Option {
	return func(s *Store) {
		if !rate.IsNegative() && rate.LessThan(one) {
			s.defaults.taxRate = rate
		}
	}
}

// NewStore constructs an empty cart.
func NewStore(opts ...Option) *Store {
	s := &Store{
		subs:     make(map[int]Subscriber),
		defaults: defaults{taxRate: DefaultTaxRate},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.order = append(s.order, id)
	return func() {
		s.dispatchMu.Lock()
		defer s.dispatchMu.Unlock()
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Dispatch applies cmd and notifies every subscriber before returning.
// A rejected command leaves the state untouched and notifies nobody.
func (s *Store) Dispatch(cmd Command) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next := s.state.clone()
	if err := cmd.apply(&next, s.defaults); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.version++
	snap := Snapshot{State: next.clone(), Version: s.version}
	s.mu.Unlock()

	for _, id := range s.order {
		if fn := s.subs[id]; fn != nil {
			fn(snap)
		}
	}
	return nil
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{State: s.state.clone(), Version: s.version}
}

// AddItem adds qty units of item.
func (s *Store) AddItem(item CatalogItem, qty decimal.Decimal) error {
	return s.Dispatch(AddItem{Item: item, Quantity: qty})
}

// ChangeQuantity adjusts a line by delta.
func (s *Store) ChangeQuantity(itemID string, delta decimal.Decimal) error {
	return s.Dispatch(ChangeQuantity{ItemID: itemID, Delta: delta})
}

// SetQuantity replaces a line quantity from raw operator input.
func (s *Store) SetQuantity(itemID, raw string) error {
	return s.Dispatch(SetQuantity{ItemID: itemID, Raw: raw})
}

// SetDiscount replaces a line discount.
func (s *Store) SetDiscount(itemID string, value decimal.Decimal, typ pricing.DiscountType) error {
	return s.Dispatch(SetDiscount{ItemID: itemID, Value: value, Type: typ})
}

// RemoveItem drops a line.
func (s *Store) RemoveItem(itemID string) error {
	return s.Dispatch(RemoveItem{ItemID: itemID})
}

// SetFlatDiscount sets the bill-level discount.
func (s *Store) SetFlatDiscount(value decimal.Decimal) error {
	return s.Dispatch(SetFlatDiscount{Value: value})
}

// Clear empties the cart.
func (s *Store) Clear() error {
	return s.Dispatch(Clear{})
}
