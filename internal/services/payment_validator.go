package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/tillpoint/internal/models"
)

// PaymentInput is one proposed tender for an order.
type PaymentInput struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// PaymentResult is the outcome of validating a payment set against a total.
type PaymentResult struct {
	Paid      decimal.Decimal
	Change    decimal.Decimal
	AmountDue decimal.Decimal // negative when overpaid
	Cash      decimal.Decimal // gross cash tendered
	Card      decimal.Decimal
}

// defaultOverpaymentMultiplier caps overpayment at twice the order total when
// the tenant has not configured its own ceiling.
var defaultOverpaymentMultiplier = decimal.NewFromInt(2)

// normalizeMethod canonicalizes a tender method so that acceptance, the
// cash/card split and the stored payment rows all see the same value.
func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}

// ValidatePayments checks a proposed payment set against an order total:
// every amount must be positive, every method must be an allowed tender type,
// the sum must cover the total and must not exceed the overpayment ceiling.
func ValidatePayments(tenant *models.Tenant, total decimal.Decimal, payments []PaymentInput) (*PaymentResult, error) {
	if len(payments) == 0 {
		return nil, newError(CodePaymentInsufficient, "no payments provided for total %s", total)
	}

	result := &PaymentResult{}
	for _, p := range payments {
		if !p.Amount.IsPositive() {
			return nil, newError(CodePaymentInvalidAmount, "payment amount must be positive, got %s", p.Amount)
		}
		method := normalizeMethod(p.Method)
		if !tenant.AllowsPaymentMethod(method) {
			return nil, newError(CodePaymentInvalidMethod, "payment method %q is not enabled", p.Method)
		}

		result.Paid = result.Paid.Add(p.Amount)
		switch method {
		case models.PaymentMethodCash:
			result.Cash = result.Cash.Add(p.Amount)
		default:
			result.Card = result.Card.Add(p.Amount)
		}
	}

	if result.Paid.LessThan(total) {
		return nil, newError(CodePaymentInsufficient, "paid %s is less than total %s", result.Paid, total)
	}

	multiplier := tenant.OverpaymentMultiplier
	if !multiplier.IsPositive() {
		multiplier = defaultOverpaymentMultiplier
	}
	ceiling := round2(total.Mul(multiplier))
	if total.IsPositive() && result.Paid.GreaterThan(ceiling) {
		return nil, newError(CodePaymentOverpaymentLimit, "paid %s exceeds the %s ceiling for total %s", result.Paid, ceiling, total)
	}

	result.Change = result.Paid.Sub(total)
	result.AmountDue = total.Sub(result.Paid)
	return result, nil
}
