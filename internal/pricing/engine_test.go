package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemPriceZeroQuantity(t *testing.T) {
	rules := []ItemRules{
		{FullPrice: 500},
		{FullPrice: 500, NForM: &NForM{N: 2, M: 1}},
		{FullPrice: 2000, BulkDiscount: &BulkDiscount{Threshold: 0, BulkPrice: 1900}},
	}
	for _, r := range rules {
		require.Equal(t, Money(0), ItemPrice(0, r))
	}
}

func TestItemPriceFullPriceOnly(t *testing.T) {
	require.Equal(t, Money(3000), ItemPrice(4, ItemRules{FullPrice: 750}))
}

func TestItemPriceNForMExactGroups(t *testing.T) {
	rules := ItemRules{FullPrice: 500, NForM: &NForM{N: 3, M: 2}}
	for k := 1; k <= 5; k++ {
		require.Equal(t, Money(k*2*500), ItemPrice(k*3, rules), "k=%d", k)
	}
}

func TestItemPriceNForMRemainderAtFullPrice(t *testing.T) {
	rules := ItemRules{FullPrice: 500, NForM: &NForM{N: 2, M: 1}}
	require.Equal(t, Money(500), ItemPrice(1, rules))
	require.Equal(t, Money(500), ItemPrice(2, rules))
	require.Equal(t, Money(1000), ItemPrice(3, rules))
	require.Equal(t, Money(1500), ItemPrice(5, rules))
}

func TestItemPriceBulkThreshold(t *testing.T) {
	rules := ItemRules{FullPrice: 2000, BulkDiscount: &BulkDiscount{Threshold: 3, BulkPrice: 1900}}
	require.Equal(t, Money(2*2000), ItemPrice(2, rules))
	require.Equal(t, Money(3*1900), ItemPrice(3, rules))
	require.Equal(t, Money(4*1900), ItemPrice(4, rules))
}

func TestItemPriceBulkNeverDisadvantagesCustomer(t *testing.T) {
	rules := ItemRules{FullPrice: 100, BulkDiscount: &BulkDiscount{Threshold: 2, BulkPrice: 150}}
	require.Equal(t, Money(300), ItemPrice(3, rules))
}

func TestQuoteItemPicksCheapestWithoutStacking(t *testing.T) {
	rules := ItemRules{
		FullPrice:    1000,
		NForM:        &NForM{N: 2, M: 1},
		BulkDiscount: &BulkDiscount{Threshold: 4, BulkPrice: 800},
	}

	q := QuoteItem(4, rules)
	require.Equal(t, Money(2000), q.Amount)
	require.Equal(t, RuleNForM, q.Rule)
	require.Equal(t, Money(4000), q.Baseline)
	require.Equal(t, Money(2000), q.Savings())

	rules.NForM = &NForM{N: 5, M: 4}
	q = QuoteItem(4, rules)
	require.Equal(t, Money(3200), q.Amount)
	require.Equal(t, RuleBulkDiscount, q.Rule)
}

func TestQuoteItemTieKeepsFullPrice(t *testing.T) {
	rules := ItemRules{FullPrice: 500, NForM: &NForM{N: 2, M: 2}}
	q := QuoteItem(2, rules)
	require.Equal(t, RuleFullPrice, q.Rule)
	require.Equal(t, Money(0), q.Savings())
}

func TestCompute(t *testing.T) {
	items := []Item{
		{Qty: 3, Rules: ItemRules{FullPrice: 500, NForM: &NForM{N: 2, M: 1}}},
		{Qty: 3, Rules: ItemRules{FullPrice: 2000, BulkDiscount: &BulkDiscount{Threshold: 3, BulkPrice: 1900}}},
		{Qty: 1, Rules: ItemRules{FullPrice: 750}},
		{Qty: 0, Rules: ItemRules{FullPrice: 9999}},
	}
	summary := Compute(items)
	require.Equal(t, Money(1500+6000+750), summary.Subtotal)
	require.Equal(t, Money(7450), summary.Total)
	require.Equal(t, Money(800), summary.Discount)
}

func TestQuoteItemSaturatesInsteadOfWrapping(t *testing.T) {
	const huge = Money(5_000_000_000_000_000_000)
	cases := map[string]struct {
		qty    int
		rules  ItemRules
		amount Money
		rule   string
	}{
		"full price": {
			qty:    2,
			rules:  ItemRules{FullPrice: huge},
			amount: MaxAmount,
			rule:   RuleFullPrice,
		},
		"n for m below ceiling": {
			qty:    2,
			rules:  ItemRules{FullPrice: huge, NForM: &NForM{N: 2, M: 1}},
			amount: huge,
			rule:   RuleNForM,
		},
		"bulk both saturated": {
			qty:    3,
			rules:  ItemRules{FullPrice: huge, BulkDiscount: &BulkDiscount{Threshold: 2, BulkPrice: huge - 1}},
			amount: MaxAmount,
			rule:   RuleFullPrice,
		},
		"huge group charge": {
			qty:    3,
			rules:  ItemRules{FullPrice: 10, NForM: &NForM{N: 1, M: math.MaxInt}},
			amount: 30,
			rule:   RuleFullPrice,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			q := QuoteItem(tc.qty, tc.rules)
			require.Equal(t, tc.amount, q.Amount)
			require.Equal(t, tc.rule, q.Rule)
			require.GreaterOrEqual(t, q.Amount, Money(0))
			require.GreaterOrEqual(t, q.Savings(), Money(0))
		})
	}
}

func TestComputeSaturatesTotals(t *testing.T) {
	items := []Item{
		{Qty: 1, Rules: ItemRules{FullPrice: MaxPrice}},
		{Qty: 1, Rules: ItemRules{FullPrice: MaxAmount}},
	}
	summary := Compute(items)
	require.Equal(t, MaxAmount, summary.Subtotal)
	require.Equal(t, MaxAmount, summary.Total)
	require.Equal(t, Money(0), summary.Discount)
}
