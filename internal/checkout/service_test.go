package checkout_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-checkout/internal/catalog"
	"github.com/noah-isme/pos-checkout/internal/checkout"
	"github.com/noah-isme/pos-checkout/internal/pricing"
)

const pricingRules = `{
  "VOUCHER": {"full_price": 500, "n_for_m": {"n": 2, "m": 1}},
  "TSHIRT": {"full_price": 2000, "bulk_discount": {"threshold": 3, "bulk_price": 1900}},
  "MUG": {"full_price": 750},
  "price": {"currency": "EUR", "format": {"symbol": "€", "decimals": 2}}
}`

const altPricingRules = `{
  "VOUCHER": {"full_price": 500, "n_for_m": {"n": 3, "m": 2}},
  "TSHIRT": {"full_price": 2000, "bulk_discount": {"threshold": 4, "bulk_price": 1900}},
  "MUG": {"full_price": 750}
}`

func mustParse(t *testing.T, doc string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(doc))
	require.NoError(t, err)
	return c
}

func newCheckout(t *testing.T) *checkout.Checkout {
	t.Helper()
	co, err := checkout.New(mustParse(t, pricingRules))
	require.NoError(t, err)
	return co
}

func scanAll(t *testing.T, co *checkout.Checkout, codes ...string) {
	t.Helper()
	for _, code := range codes {
		require.NoError(t, co.Scan(code))
	}
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	_, err := checkout.New(nil)
	require.ErrorIs(t, err, catalog.ErrSchema)

	bad := catalog.New(map[string]pricing.ItemRules{"MUG": {FullPrice: -1}})
	_, err = checkout.New(bad)
	var negErr *catalog.NegativeValueError
	require.ErrorAs(t, err, &negErr)
	require.Equal(t, "MUG.full_price", negErr.Path)
}

func TestScanKnownAndUnknownCodes(t *testing.T) {
	co := newCheckout(t)
	for _, code := range []string{"VOUCHER", "TSHIRT", "MUG"} {
		require.NoError(t, co.Scan(code))
	}
	before := co.Total()

	for _, code := range []string{"CAP", "FIDDLER", "price", "voucher"} {
		err := co.Scan(code)
		var nf *checkout.NotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, code, nf.Code)
		require.ErrorIs(t, err, checkout.ErrNotFound)
	}
	require.Equal(t, before, co.Total())
	require.Equal(t, []string{"VOUCHER", "TSHIRT", "MUG"}, co.Scanned())
	require.Zero(t, co.Quantity("CAP"))
}

func TestTotals(t *testing.T) {
	cases := []struct {
		name  string
		items []string
		total pricing.Money
	}{
		{"empty cart", nil, 0},
		{"one of each", []string{"TSHIRT", "VOUCHER", "MUG"}, 3250},
		{"two vouchers", []string{"VOUCHER", "TSHIRT", "VOUCHER"}, 2500},
		{"four tshirts", []string{"TSHIRT", "TSHIRT", "TSHIRT", "VOUCHER", "TSHIRT"}, 8100},
		{"mixed basket", []string{"VOUCHER", "TSHIRT", "VOUCHER", "VOUCHER", "MUG", "TSHIRT", "TSHIRT"}, 7450},
	}
	co := newCheckout(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, co.Reset(nil))
			scanAll(t, co, tc.items...)
			require.Equal(t, tc.total, co.Total())
			require.Equal(t, tc.total, co.Total(), "total must not mutate the cart")
		})
	}
}

func TestTotalsUnderAlternativeCatalog(t *testing.T) {
	co := newCheckout(t)
	alt := mustParse(t, altPricingRules)

	require.NoError(t, co.Reset(alt))
	scanAll(t, co, "VOUCHER", "TSHIRT", "VOUCHER")
	require.Equal(t, pricing.Money(3000), co.Total())

	require.NoError(t, co.Reset(alt))
	scanAll(t, co, "TSHIRT", "TSHIRT", "TSHIRT", "VOUCHER", "TSHIRT")
	require.Equal(t, pricing.Money(8100), co.Total())

	require.NoError(t, co.Reset(alt))
	scanAll(t, co, "VOUCHER", "TSHIRT", "VOUCHER", "VOUCHER", "MUG", "TSHIRT", "TSHIRT")
	require.Equal(t, pricing.Money(7750), co.Total())
}

func TestTotalIsOrderIndependent(t *testing.T) {
	basket := []string{"VOUCHER", "TSHIRT", "VOUCHER", "VOUCHER", "MUG", "TSHIRT", "TSHIRT", "VOUCHER", "MUG"}
	co := newCheckout(t)
	scanAll(t, co, basket...)
	want := co.Total()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]string(nil), basket...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.NoError(t, co.Reset(nil))
		scanAll(t, co, shuffled...)
		require.Equal(t, want, co.Total(), "order %v", shuffled)
	}
}

func TestResetClearsCartAndKeepsCatalog(t *testing.T) {
	co := newCheckout(t)
	scanAll(t, co, "MUG", "MUG")
	firstCart := co.CartID()

	require.NoError(t, co.Reset(nil))
	require.Equal(t, pricing.Money(0), co.Total())
	require.Empty(t, co.Scanned())
	require.Empty(t, co.Lines())
	require.NotEqual(t, firstCart, co.CartID())

	require.NoError(t, co.Scan("MUG"))
	require.Equal(t, pricing.Money(750), co.Total())
}

func TestResetRejectsInvalidCatalogWithoutSideEffects(t *testing.T) {
	co := newCheckout(t)
	scanAll(t, co, "VOUCHER", "VOUCHER")
	cartID := co.CartID()

	bad := catalog.New(map[string]pricing.ItemRules{
		"VOUCHER": {FullPrice: 500, BulkDiscount: &pricing.BulkDiscount{Threshold: 2, BulkPrice: -10}},
	})
	err := co.Reset(bad)
	require.ErrorIs(t, err, catalog.ErrNegativeValue)

	require.Equal(t, pricing.Money(500), co.Total())
	require.Equal(t, cartID, co.CartID())
	_, ok := co.Catalog().Lookup("TSHIRT")
	require.True(t, ok)
}

func TestCatalogIsCopiedOnEntry(t *testing.T) {
	c := mustParse(t, pricingRules)
	co, err := checkout.New(c)
	require.NoError(t, err)

	c.Items["MUG"] = pricing.ItemRules{FullPrice: 1}
	c.Items["VOUCHER"].NForM.M = 2

	scanAll(t, co, "MUG", "VOUCHER", "VOUCHER")
	require.Equal(t, pricing.Money(750+500), co.Total())
}

func TestLinesAndSummary(t *testing.T) {
	co := newCheckout(t)
	scanAll(t, co, "VOUCHER", "TSHIRT", "VOUCHER", "VOUCHER", "MUG", "TSHIRT", "TSHIRT")

	lines := co.Lines()
	require.Len(t, lines, 3)
	require.Equal(t, "MUG", lines[0].Code)
	require.Equal(t, pricing.RuleFullPrice, lines[0].Quote.Rule)
	require.Equal(t, "TSHIRT", lines[1].Code)
	require.Equal(t, pricing.RuleBulkDiscount, lines[1].Quote.Rule)
	require.Equal(t, pricing.Money(5700), lines[1].Quote.Amount)
	require.Equal(t, "VOUCHER", lines[2].Code)
	require.Equal(t, 3, lines[2].Quote.Quantity)
	require.Equal(t, pricing.RuleNForM, lines[2].Quote.Rule)
	require.Equal(t, pricing.Money(500), lines[2].Quote.Savings())

	summary := co.Summary()
	require.Equal(t, pricing.Money(8250), summary.Subtotal)
	require.Equal(t, pricing.Money(800), summary.Discount)
	require.Equal(t, pricing.Money(7450), summary.Total)
}

func TestConcurrentScansAreSerialized(t *testing.T) {
	co := newCheckout(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = co.Scan("MUG")
			_ = co.Total()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, co.Quantity("MUG"))
	require.Equal(t, pricing.Money(50*750), co.Total())
}

func TestScanReceiptReflectsOwnScan(t *testing.T) {
	co := newCheckout(t)

	_, err := co.ScanReceipt("CAP")
	require.ErrorIs(t, err, checkout.ErrNotFound)

	const workers = 40
	quantities := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := co.ScanReceipt("MUG")
			if err != nil {
				return
			}
			qty := rec.Quantity("MUG")
			if rec.Summary.Total != pricing.Money(qty)*750 || len(rec.Scanned) != qty {
				qty = -1
			}
			quantities <- qty
		}()
	}
	wg.Wait()
	close(quantities)

	seen := make(map[int]bool, workers)
	for qty := range quantities {
		require.Positive(t, qty)
		require.False(t, seen[qty], "quantity %d reported twice", qty)
		seen[qty] = true
	}
	require.Len(t, seen, workers)
}
