package checkout

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/pos-checkout/internal/catalog"
	"github.com/noah-isme/pos-checkout/internal/pricing"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("item not found")

// NotFoundError is returned when a scanned code is not in the catalog.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item not found: %s", e.Code)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Line is one receipt row.
type Line struct {
	Code  string
	Quote pricing.Quote
}

// Checkout is a single cart priced against one catalog. All methods are safe
// for concurrent use; they serialize on one lock so a read always reflects
// every scan that completed before it.
type Checkout struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	counts  map[string]int
	scanned []string
	cartID  uuid.UUID
}

// New validates c and starts an empty cart.
func New(c *catalog.Catalog) (*Checkout, error) {
	if err := catalog.Validate(c); err != nil {
		return nil, err
	}
	return &Checkout{
		catalog: c.Clone(),
		counts:  make(map[string]int),
		cartID:  uuid.New(),
	}, nil
}

// Scan adds one unit of code to the cart. Unknown codes leave the cart untouched.
func (co *Checkout) Scan(code string) error {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.scanLocked(code)
}

// ScanReceipt scans code and snapshots the resulting cart without releasing
// the lock in between, so the receipt reflects exactly this scan.
func (co *Checkout) ScanReceipt(code string) (Receipt, error) {
	co.mu.Lock()
	defer co.mu.Unlock()
	if err := co.scanLocked(code); err != nil {
		return Receipt{}, err
	}
	return co.receiptLocked(), nil
}

func (co *Checkout) scanLocked(code string) error {
	if _, ok := co.catalog.Lookup(code); !ok {
		return &NotFoundError{Code: code}
	}
	co.counts[code]++
	co.scanned = append(co.scanned, code)
	return nil
}

// Total returns the cart total in minor units.
func (co *Checkout) Total() pricing.Money {
	co.mu.Lock()
	defer co.mu.Unlock()
	return pricing.Compute(co.itemsLocked()).Total
}

// Summary returns subtotal, discount and total for the cart.
func (co *Checkout) Summary() pricing.Summary {
	co.mu.Lock()
	defer co.mu.Unlock()
	return pricing.Compute(co.itemsLocked())
}

func (co *Checkout) itemsLocked() []pricing.Item {
	items := make([]pricing.Item, 0, len(co.counts))
	for code, qty := range co.counts {
		rules, _ := co.catalog.Lookup(code)
		items = append(items, pricing.Item{Qty: qty, Rules: rules})
	}
	return items
}

// Quantity returns how many units of code have been scanned.
func (co *Checkout) Quantity(code string) int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.counts[code]
}

// Lines returns the per-code breakdown ordered by code.
func (co *Checkout) Lines() []Line {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.linesLocked()
}

func (co *Checkout) linesLocked() []Line {
	codes := make([]string, 0, len(co.counts))
	for code, qty := range co.counts {
		if qty > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	lines := make([]Line, 0, len(codes))
	for _, code := range codes {
		rules, _ := co.catalog.Lookup(code)
		lines = append(lines, Line{Code: code, Quote: pricing.QuoteItem(co.counts[code], rules)})
	}
	return lines
}

// Receipt is a point-in-time view of the cart taken under one lock.
type Receipt struct {
	CartID  string
	Catalog *catalog.Catalog
	Scanned []string
	Lines   []Line
	Summary pricing.Summary
}

// Receipt snapshots the cart together with the catalog it was priced against.
func (co *Checkout) Receipt() Receipt {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.receiptLocked()
}

func (co *Checkout) receiptLocked() Receipt {
	scanned := make([]string, len(co.scanned))
	copy(scanned, co.scanned)
	return Receipt{
		CartID:  co.cartID.String(),
		Catalog: co.catalog,
		Scanned: scanned,
		Lines:   co.linesLocked(),
		Summary: pricing.Compute(co.itemsLocked()),
	}
}

// Quantity returns the quantity of the receipt line for code.
func (r Receipt) Quantity(code string) int {
	for _, l := range r.Lines {
		if l.Code == code {
			return l.Quote.Quantity
		}
	}
	return 0
}

// Scanned returns the accepted codes in scan order.
func (co *Checkout) Scanned() []string {
	co.mu.Lock()
	defer co.mu.Unlock()
	out := make([]string, len(co.scanned))
	copy(out, co.scanned)
	return out
}

// Reset empties the cart and, when next is non-nil, switches to that catalog.
// An invalid catalog is rejected and leaves the cart as it was.
func (co *Checkout) Reset(next *catalog.Catalog) error {
	if next != nil {
		if err := catalog.Validate(next); err != nil {
			return err
		}
	}
	co.mu.Lock()
	defer co.mu.Unlock()
	if next != nil {
		co.catalog = next.Clone()
	}
	co.counts = make(map[string]int)
	co.scanned = nil
	co.cartID = uuid.New()
	return nil
}

// Catalog returns the catalog currently used for pricing. Callers must not modify it.
func (co *Checkout) Catalog() *catalog.Catalog {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.catalog
}

// CartID identifies the current cart. It changes on every reset.
func (co *Checkout) CartID() string {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.cartID.String()
}
