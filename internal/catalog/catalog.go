package catalog

import (
	"sort"

	"github.com/noah-isme/pos-checkout/internal/pricing"
)

// ReservedKey holds display metadata inside a catalog document. It is never an item code.
const ReservedKey = "price"

// Catalog is a parsed and typed pricing catalog.
type Catalog struct {
	Items   map[string]pricing.ItemRules
	Display DisplayOptions
}

// DisplayOptions controls how amounts are rendered for humans.
type DisplayOptions struct {
	Currency string        `json:"currency"`
	Format   DisplayFormat `json:"format"`
}

// DisplayFormat describes the currency string layout.
type DisplayFormat struct {
	Symbol             string `json:"symbol"`
	SymbolPosition     string `json:"symbol_position" validate:"omitempty,oneof=prefix suffix"`
	DecimalSeparator   string `json:"decimal_separator"`
	ThousandsSeparator string `json:"thousands_separator"`
	Decimals           *int   `json:"decimals" validate:"omitempty,gte=0,lte=8"`
	Space              bool   `json:"space"`
}

// Symbol positions.
const (
	SymbolPrefix = "prefix"
	SymbolSuffix = "suffix"
)

// DefaultDisplay is used when a catalog carries no price metadata.
func DefaultDisplay() DisplayOptions {
	decimals := 2
	return DisplayOptions{
		Currency: "EUR",
		Format: DisplayFormat{
			Symbol:           "€",
			SymbolPosition:   SymbolSuffix,
			DecimalSeparator: ".",
			Decimals:         &decimals,
		},
	}
}

// New builds a catalog from typed rules using default display options.
func New(items map[string]pricing.ItemRules) *Catalog {
	copied := make(map[string]pricing.ItemRules, len(items))
	for code, rules := range items {
		copied[code] = rules
	}
	return &Catalog{Items: copied, Display: DefaultDisplay()}
}

// Lookup returns the rules for an item code.
func (c *Catalog) Lookup(code string) (pricing.ItemRules, bool) {
	if c == nil || code == ReservedKey {
		return pricing.ItemRules{}, false
	}
	rules, ok := c.Items[code]
	return rules, ok
}

// Codes lists item codes in lexical order.
func (c *Catalog) Codes() []string {
	if c == nil {
		return nil
	}
	codes := make([]string, 0, len(c.Items))
	for code := range c.Items {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (o DisplayOptions) withDefaults() DisplayOptions {
	def := DefaultDisplay()
	if o.Currency == "" {
		o.Currency = def.Currency
	}
	if o.Format.Symbol == "" {
		o.Format.Symbol = def.Format.Symbol
	}
	if o.Format.SymbolPosition == "" {
		o.Format.SymbolPosition = def.Format.SymbolPosition
	}
	if o.Format.DecimalSeparator == "" {
		o.Format.DecimalSeparator = def.Format.DecimalSeparator
	}
	if o.Format.Decimals == nil {
		o.Format.Decimals = def.Format.Decimals
	}
	return o
}

// DecimalPlaces returns the number of minor-unit digits.
func (o DisplayOptions) DecimalPlaces() int {
	if o.Format.Decimals == nil {
		return 2
	}
	return *o.Format.Decimals
}

// Clone returns a deep copy so the caller can hand the catalog over without
// sharing rule pointers.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}
	out := &Catalog{Items: make(map[string]pricing.ItemRules, len(c.Items)), Display: c.Display}
	if d := c.Display.Format.Decimals; d != nil {
		v := *d
		out.Display.Format.Decimals = &v
	}
	for code, rules := range c.Items {
		if rules.NForM != nil {
			nm := *rules.NForM
			rules.NForM = &nm
		}
		if rules.BulkDiscount != nil {
			bd := *rules.BulkDiscount
			rules.BulkDiscount = &bd
		}
		out.Items[code] = rules
	}
	return out
}
