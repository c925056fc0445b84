package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant holds per-tenant settlement configuration. Every branch, product
// and shift belongs to exactly one tenant.
type Tenant struct {
	BaseModel
	Name                      string          `json:"name"`
	Currency                  string          `json:"currency"`
	DefaultTaxRate            decimal.Decimal `gorm:"type:decimal(5,2)" json:"default_tax_rate"`
	TaxInclusiveDefault       bool            `json:"tax_inclusive_default"`
	AllowNegativeStock        bool            `json:"allow_negative_stock"`
	OverpaymentMultiplier     decimal.Decimal `gorm:"type:decimal(5,2)" json:"overpayment_multiplier"`
	RequireCashReconciliation bool            `json:"require_cash_reconciliation"`
	AllowedPaymentMethods     string          `json:"allowed_payment_methods"` // comma separated, e.g. "cash,card"
	ServiceChargeRate         decimal.Decimal `gorm:"type:decimal(5,2)" json:"service_charge_rate"`
}

// AllowsPaymentMethod reports whether the tender type is enabled for the tenant.
// An empty list means cash and card only.
func (t *Tenant) AllowsPaymentMethod(method string) bool {
	allowed := t.AllowedPaymentMethods
	if allowed == "" {
		allowed = "cash,card"
	}
	for _, m := range strings.Split(allowed, ",") {
		if strings.EqualFold(strings.TrimSpace(m), method) {
			return true
		}
	}
	return false
}

// Branch is a physical location with its own drawer and ledgers.
type Branch struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;index" json:"tenant_id"`
	Tenant   *Tenant   `json:"tenant,omitempty"`
	Name     string    `json:"name"`
	Code     string    `gorm:"index" json:"code"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
}
