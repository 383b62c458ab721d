package display

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-checkout/internal/catalog"
)

func TestFormatDefaults(t *testing.T) {
	f := NewFormatter(nil)
	require.Equal(t, "32.50€", f.Format(3250))
	require.Equal(t, "0.00€", f.Format(0))
	require.Equal(t, "0.05€", f.Format(5))
	require.Equal(t, "-7.50€", f.Format(-750))
	require.Equal(t, "32.5", f.Decimal(3250).String())
}

func TestFormatPrefixGroupedComma(t *testing.T) {
	decimals := 2
	f := Formatter{Options: catalog.DisplayOptions{
		Currency: "EUR",
		Format: catalog.DisplayFormat{
			Symbol:             "EUR",
			SymbolPosition:     catalog.SymbolPrefix,
			DecimalSeparator:   ",",
			ThousandsSeparator: ".",
			Decimals:           &decimals,
			Space:              true,
		},
	}}
	require.Equal(t, "EUR 1.234.567,89", f.Format(123456789))
	require.Equal(t, "EUR 999,00", f.Format(99900))
}

func TestFormatZeroDecimals(t *testing.T) {
	decimals := 0
	f := Formatter{Options: catalog.DisplayOptions{
		Currency: "JPY",
		Format:   catalog.DisplayFormat{Symbol: "¥", SymbolPosition: catalog.SymbolPrefix, ThousandsSeparator: ",", Decimals: &decimals},
	}}
	require.Equal(t, "¥12,000", f.Format(12000))
}

func TestGroup(t *testing.T) {
	require.Equal(t, "123", group("123", ","))
	require.Equal(t, "1,234", group("1234", ","))
	require.Equal(t, "123,456", group("123456", ","))
	require.Equal(t, "1234", group("1234", ""))
}
