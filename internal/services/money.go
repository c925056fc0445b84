package services

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// round2 rounds a monetary value to two decimal places. Every derived
// computation is rounded immediately so intermediate drift cannot accumulate.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// lineAmounts computes net, tax and gross for one order line. For
// tax-inclusive prices the listed price already contains tax, so the net is
// backed out of the gross; for tax-exclusive prices tax is added on top.
// discount is an absolute amount applied before tax is derived.
func lineAmounts(unitPrice, qty, rate decimal.Decimal, taxInclusive bool, discount decimal.Decimal) (net, tax, gross decimal.Decimal) {
	base := round2(unitPrice.Mul(qty)).Sub(discount)

	if rate.IsZero() {
		return base, decimal.Zero, base
	}

	divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
	if taxInclusive {
		gross = base
		net = round2(gross.Div(divisor))
		tax = gross.Sub(net)
		return net, tax, gross
	}

	net = base
	tax = round2(net.Mul(rate).Div(hundred))
	gross = net.Add(tax)
	return net, tax, gross
}
