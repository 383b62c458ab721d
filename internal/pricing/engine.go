package pricing

import "math"

// Money represents a monetary value stored in minor units.
type Money = int64

// MaxPrice caps any single unit price accepted by catalog validation.
const MaxPrice Money = 1_000_000_000_000

// MaxAmount is the ceiling line and cart amounts saturate at.
const MaxAmount Money = math.MaxInt64

// Rule names reported by QuoteItem.
const (
	RuleFullPrice    = "full_price"
	RuleNForM        = "n_for_m"
	RuleBulkDiscount = "bulk_discount"
)

// NForM charges the price of M units for every group of N units.
type NForM struct {
	N int `json:"n" validate:"gte=1"`
	M int `json:"m" validate:"gte=1"`
}

// BulkDiscount prices every unit at BulkPrice once the quantity reaches Threshold.
type BulkDiscount struct {
	Threshold int   `json:"threshold" validate:"gte=0"`
	BulkPrice Money `json:"bulk_price" validate:"gte=0,lte=1000000000000"`
}

// ItemRules describes how a single item code is priced.
type ItemRules struct {
	FullPrice    Money         `json:"full_price" validate:"gte=0,lte=1000000000000"`
	NForM        *NForM        `json:"n_for_m,omitempty"`
	BulkDiscount *BulkDiscount `json:"bulk_discount,omitempty"`
}

// Quote is the outcome of pricing one item line.
type Quote struct {
	Quantity int
	Amount   Money
	Baseline Money
	Rule     string
}

// Savings returns how much cheaper the line is than paying full price.
func (q Quote) Savings() Money {
	return q.Baseline - q.Amount
}

type candidate struct {
	rule   string
	amount Money
}

// ItemPrice returns the cheapest price for quantity units under rules.
func ItemPrice(quantity int, rules ItemRules) Money {
	return QuoteItem(quantity, rules).Amount
}

// QuoteItem evaluates every rule as if it were the only one and keeps the
// cheapest outcome. Rules never stack. Ties go to the earlier candidate so a
// promotion is only reported when it is strictly cheaper.
func QuoteItem(quantity int, rules ItemRules) Quote {
	if quantity <= 0 {
		return Quote{Rule: RuleFullPrice}
	}
	qty := Money(quantity)
	baseline := mulSat(qty, rules.FullPrice)

	candidates := []candidate{{rule: RuleFullPrice, amount: baseline}}
	if nm := rules.NForM; nm != nil && nm.N > 0 {
		groups := Money(quantity / nm.N)
		ungrouped := Money(quantity % nm.N)
		charged := addSat(mulSat(groups, Money(nm.M)), ungrouped)
		candidates = append(candidates, candidate{rule: RuleNForM, amount: mulSat(charged, rules.FullPrice)})
	}
	if bd := rules.BulkDiscount; bd != nil {
		amount := baseline
		if quantity >= bd.Threshold {
			amount = mulSat(qty, bd.BulkPrice)
		}
		candidates = append(candidates, candidate{rule: RuleBulkDiscount, amount: amount})
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.amount < best.amount {
			best = c
		}
	}
	return Quote{
		Quantity: quantity,
		Amount:   best.amount,
		Baseline: baseline,
		Rule:     best.rule,
	}
}

// Item is one priced line of a cart: a quantity of a single code.
type Item struct {
	Qty   int
	Rules ItemRules
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Discount Money
	Total    Money
}

// Compute prices each line independently and sums the results. Lines with a
// non-positive quantity are skipped.
func Compute(items []Item) Summary {
	var sum Summary
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		q := QuoteItem(it.Qty, it.Rules)
		sum.Subtotal = addSat(sum.Subtotal, q.Baseline)
		sum.Total = addSat(sum.Total, q.Amount)
	}
	sum.Discount = sum.Subtotal - sum.Total
	return sum
}

// mulSat multiplies non-negative amounts, clamping at MaxAmount instead of
// wrapping.
func mulSat(a, b Money) Money {
	if a <= 0 || b <= 0 {
		return a * b
	}
	if a > MaxAmount/b {
		return MaxAmount
	}
	return a * b
}

func addSat(a, b Money) Money {
	if a > 0 && b > MaxAmount-a {
		return MaxAmount
	}
	return a + b
}
