// Package pricing computes the monetary breakdown of an order from its
// line-item snapshots and the shipping country. The engine is pure: policy
// (tax table, shipping threshold) is injected as Config and identical inputs
// always produce identical output, which is what lets the webhook path be
// reconciled against the direct checkout path for the same cart.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

type Breakdown struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	TotalPrice    float64 `json:"totalPrice"`
	Subtotal      float64 `json:"subtotal"`
	TaxRate       float64 `json:"taxRate"`
}

type Config struct {
	// TaxRates is keyed by uppercase ISO country code.
	TaxRates       map[string]float64
	DefaultTaxRate float64

	// Orders with itemsPrice above FreeShippingOver ship free,
	// everything else pays ShippingFee.
	FreeShippingOver float64
	ShippingFee      float64
}

func Default() Config {
	return Config{
		TaxRates: map[string]float64{
			"GH": 0.125,
			"NG": 0.075,
			"ZA": 0.15,
			"KE": 0.16,
			"GB": 0.2,
			"US": 0.0,
			"CA": 0.05,
			"IN": 0.18,
			"AU": 0.1,
		},
		DefaultTaxRate:   0.15,
		FreeShippingOver: 100,
		ShippingFee:      10,
	}
}

func (c Config) RateFor(country string) float64 {
	if rate, ok := c.TaxRates[strings.ToUpper(country)]; ok {
		return rate
	}
	return c.DefaultTaxRate
}

// Calc prices an order. Monetary outputs are rounded half-up to two
// decimals once, at output, never per line.
func Calc(items []LineItem, country string, cfg Config) Breakdown {
	sum := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Qty)))
		sum = sum.Add(line)
	}

	itemsPrice := sum.Round(2)

	shipping := decimal.NewFromFloat(cfg.ShippingFee)
	if itemsPrice.GreaterThan(decimal.NewFromFloat(cfg.FreeShippingOver)) {
		shipping = decimal.Zero
	}

	rate := cfg.RateFor(country)
	taxPrice := sum.Mul(decimal.NewFromFloat(rate)).Round(2)

	totalPrice := itemsPrice.Add(shipping).Add(taxPrice).Round(2)

	return Breakdown{
		ItemsPrice:    itemsPrice.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TaxPrice:      taxPrice.InexactFloat64(),
		TotalPrice:    totalPrice.InexactFloat64(),
		Subtotal:      itemsPrice.InexactFloat64(),
		TaxRate:       rate,
	}
}
