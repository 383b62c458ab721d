package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-checkout/internal/pricing"
)

func TestValidateDocumentRejectsNonObjectRoot(t *testing.T) {
	for _, doc := range []any{nil, []any{}, "catalog", json.Number("1")} {
		err := ValidateDocument(doc)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		require.ErrorIs(t, err, ErrSchema)
	}
}

func TestValidateDocumentReportsFirstNegativePath(t *testing.T) {
	doc := map[string]any{
		"TSHIRT": map[string]any{
			"full_price": json.Number("2000"),
			"bulk_discount": map[string]any{
				"threshold":  json.Number("-3"),
				"bulk_price": json.Number("-1900"),
			},
		},
		"ZEBRA": map[string]any{"full_price": json.Number("-1")},
	}
	err := ValidateDocument(doc)
	var negErr *NegativeValueError
	require.ErrorAs(t, err, &negErr)
	require.Equal(t, "TSHIRT.bulk_discount.bulk_price", negErr.Path)
	require.Contains(t, err.Error(), "TSHIRT.bulk_discount.bulk_price")
	require.True(t, errors.Is(err, ErrNegativeValue))

	outOfRange := map[string]any{
		"MUG":   map[string]any{"full_price": json.Number("750")},
		"price": map[string]any{"currency": "EUR", "extra": json.Number("-1e400")},
	}
	err = ValidateDocument(outOfRange)
	require.ErrorAs(t, err, &negErr)
	require.Equal(t, "price.extra", negErr.Path)

	negativeZero := map[string]any{
		"MUG": map[string]any{"full_price": json.Number("-0"), "weight": json.Number("-0.0e5")},
	}
	require.NoError(t, ValidateDocument(negativeZero))
}

func TestValidateDocumentIgnoresNonNumericLeaves(t *testing.T) {
	doc := map[string]any{
		"MUG": map[string]any{"full_price": 750.0},
		"price": map[string]any{
			"currency": "EUR",
			"format":   map[string]any{"symbol": "-", "space": false},
		},
		"tags": []any{-1.0},
	}
	require.NoError(t, ValidateDocument(doc))
}

func TestValidateTyped(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := New(map[string]pricing.ItemRules{
			"VOUCHER": {FullPrice: 500, NForM: &pricing.NForM{N: 2, M: 1}},
		})
		require.NoError(t, Validate(c))
	})

	t.Run("nil catalog", func(t *testing.T) {
		require.ErrorIs(t, Validate(nil), ErrSchema)
	})

	t.Run("negative bulk price", func(t *testing.T) {
		c := New(map[string]pricing.ItemRules{
			"TSHIRT": {FullPrice: 2000, BulkDiscount: &pricing.BulkDiscount{Threshold: 3, BulkPrice: -1}},
		})
		err := Validate(c)
		var negErr *NegativeValueError
		require.ErrorAs(t, err, &negErr)
		require.Equal(t, "TSHIRT.bulk_discount.bulk_price", negErr.Path)
	})

	t.Run("zero group size", func(t *testing.T) {
		c := New(map[string]pricing.ItemRules{
			"VOUCHER": {FullPrice: 500, NForM: &pricing.NForM{N: 0, M: 1}},
		})
		err := Validate(c)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		require.Equal(t, "VOUCHER.n_for_m.n", schemaErr.Path)
	})

	t.Run("price above cap", func(t *testing.T) {
		c := New(map[string]pricing.ItemRules{"GOLD": {FullPrice: 5_000_000_000_000_000_000}})
		err := Validate(c)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		require.Equal(t, "GOLD.full_price", schemaErr.Path)
	})

	t.Run("reserved code", func(t *testing.T) {
		c := New(map[string]pricing.ItemRules{ReservedKey: {FullPrice: 1}})
		require.ErrorIs(t, Validate(c), ErrSchema)
	})
}
