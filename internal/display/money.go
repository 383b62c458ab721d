package display

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-checkout/internal/catalog"
	"github.com/noah-isme/pos-checkout/internal/pricing"
)

// Formatter renders minor-unit amounts using a catalog's display options.
type Formatter struct {
	Options catalog.DisplayOptions
}

// NewFormatter builds a formatter for the catalog. A nil catalog uses the defaults.
func NewFormatter(c *catalog.Catalog) Formatter {
	if c == nil {
		return Formatter{Options: catalog.DefaultDisplay()}
	}
	return Formatter{Options: c.Display}
}

// Decimal converts minor units into a major-unit decimal (3250 -> 32.50).
func (f Formatter) Decimal(amount pricing.Money) decimal.Decimal {
	return decimal.New(amount, -int32(f.Options.DecimalPlaces()))
}

// Format renders amount, e.g. 3250 -> "32.50€".
func (f Formatter) Format(amount pricing.Money) string {
	places := f.Options.DecimalPlaces()
	value := f.Decimal(amount)
	negative := value.IsNegative()
	fixed := value.Abs().StringFixed(int32(places))

	whole, frac, _ := strings.Cut(fixed, ".")
	number := group(whole, f.Options.Format.ThousandsSeparator)
	if places > 0 {
		sep := f.Options.Format.DecimalSeparator
		if sep == "" {
			sep = "."
		}
		number += sep + frac
	}

	symbol := f.Options.Format.Symbol
	gap := ""
	if f.Options.Format.Space && symbol != "" {
		gap = " "
	}
	var out string
	if f.Options.Format.SymbolPosition == catalog.SymbolPrefix {
		out = symbol + gap + number
	} else {
		out = number + gap + symbol
	}
	if negative {
		return "-" + out
	}
	return out
}

func group(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
