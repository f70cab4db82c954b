package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalcFlatShippingUnderThreshold(t *testing.T) {
	got := Calc([]LineItem{{Price: 50, Qty: 1}}, "US", Default())

	require.Equal(t, 50.0, got.ItemsPrice)
	require.Equal(t, 10.0, got.ShippingPrice)
	require.Equal(t, 0.0, got.TaxPrice)
	require.Equal(t, 60.0, got.TotalPrice)
	require.Equal(t, 50.0, got.Subtotal)
	require.Equal(t, 0.0, got.TaxRate)
}

func TestCalcFreeShippingAndRegionalTax(t *testing.T) {
	got := Calc([]LineItem{{Price: 60, Qty: 2}}, "GH", Default())

	require.Equal(t, 120.0, got.ItemsPrice)
	require.Equal(t, 0.0, got.ShippingPrice)
	require.Equal(t, 15.0, got.TaxPrice)
	require.Equal(t, 135.0, got.TotalPrice)
	require.Equal(t, 0.125, got.TaxRate)
}

func TestCalcUnknownRegionFallsBackToDefault(t *testing.T) {
	got := Calc([]LineItem{{Price: 10, Qty: 1}}, "XX", Default())
	require.Equal(t, 0.15, got.TaxRate)
	require.Equal(t, 1.5, got.TaxPrice)

	empty := Calc([]LineItem{{Price: 10, Qty: 1}}, "", Default())
	require.Equal(t, 0.15, empty.TaxRate)
}

func TestCalcLowercaseCountry(t *testing.T) {
	got := Calc([]LineItem{{Price: 10, Qty: 1}}, "gb", Default())
	require.Equal(t, 0.2, got.TaxRate)
}

func TestCalcRoundsHalfUpOnceAtOutput(t *testing.T) {
	// 3 * 33.335 = 100.005, which must round to 100.01 only at output;
	// per-line rounding would have produced 100.02 (3 * 33.34).
	got := Calc([]LineItem{{Price: 33.335, Qty: 3}}, "US", Default())
	require.Equal(t, 100.01, got.ItemsPrice)
}

func TestCalcTotalIsSumOfRoundedParts(t *testing.T) {
	cases := []struct {
		items   []LineItem
		country string
	}{
		{[]LineItem{{Price: 19.99, Qty: 3}}, "GH"},
		{[]LineItem{{Price: 0.01, Qty: 1}}, "KE"},
		{[]LineItem{{Price: 33.33, Qty: 3}, {Price: 7.77, Qty: 2}}, "IN"},
		{[]LineItem{{Price: 100.004, Qty: 1}}, "ZA"},
		{[]LineItem{}, "US"},
	}

	for _, tc := range cases {
		got := Calc(tc.items, tc.country, Default())
		require.InDelta(t, got.ItemsPrice+got.ShippingPrice+got.TaxPrice, got.TotalPrice, 0.001)
		require.Equal(t, got.ItemsPrice, got.Subtotal)
	}
}

func TestCalcDeterministic(t *testing.T) {
	items := []LineItem{{Price: 12.49, Qty: 2}, {Price: 99.95, Qty: 1}}
	first := Calc(items, "NG", Default())
	second := Calc(items, "NG", Default())
	require.Equal(t, first, second)
}

func TestCalcInjectedPolicy(t *testing.T) {
	cfg := Config{
		TaxRates:         map[string]float64{"DE": 0.19},
		DefaultTaxRate:   0.1,
		FreeShippingOver: 50,
		ShippingFee:      5,
	}

	got := Calc([]LineItem{{Price: 30, Qty: 1}}, "DE", cfg)
	require.Equal(t, 5.0, got.ShippingPrice)
	require.Equal(t, 5.7, got.TaxPrice)

	over := Calc([]LineItem{{Price: 30, Qty: 2}}, "FR", cfg)
	require.Equal(t, 0.0, over.ShippingPrice)
	require.Equal(t, 0.1, over.TaxRate)
}
