package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusDraft             = "draft"
	OrderStatusPending           = "pending"
	OrderStatusCompleted         = "completed"
	OrderStatusCancelled         = "cancelled"
	OrderStatusRefunded          = "refunded"
	OrderStatusPartiallyRefunded = "partially_refunded"
)

// Payment methods.
const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

// Order is the sale aggregate. Tax rate, currency and branch are snapshotted
// at creation time so tenant configuration changes never affect open orders.
type Order struct {
	BaseModel
	TenantID    uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_orders_tenant_number;index" json:"tenant_id"`
	BranchID    uuid.UUID  `gorm:"type:uuid;index" json:"branch_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	ShiftID     *uuid.UUID `gorm:"type:uuid;index" json:"shift_id"`
	OrderNumber string     `gorm:"uniqueIndex:idx_orders_tenant_number" json:"order_number"`
	Status      string     `gorm:"index" json:"status"`

	Currency     string          `json:"currency"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,2)" json:"tax_rate"`
	TaxInclusive bool            `json:"tax_inclusive"`

	Subtotal            decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount_amount"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(12,2)" json:"tax_amount"`
	ServiceChargeAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"service_charge_amount"`
	Total               decimal.Decimal `gorm:"type:decimal(12,2)" json:"total"`
	AmountPaid          decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount_paid"`
	ChangeAmount        decimal.Decimal `gorm:"type:decimal(12,2)" json:"change_amount"`
	AmountDue           decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount_due"`
	RefundedAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"refunded_amount"`

	Notes        string     `json:"notes"`
	CancelReason string     `json:"cancel_reason"`
	CompletedAt  *time.Time `json:"completed_at"`
	CancelledAt  *time.Time `json:"cancelled_at"`

	Items    []OrderItem `json:"items,omitempty"`
	Payments []Payment   `json:"payments,omitempty"`
}

// OrderItem snapshots the product at the moment it was added to the order.
type OrderItem struct {
	BaseModel
	OrderID      uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;index" json:"product_id"`
	ProductName  string          `json:"product_name"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,2)" json:"tax_rate"`
	TaxInclusive bool            `json:"tax_inclusive"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,2)" json:"quantity"`
	Discount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"tax_amount"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(12,2)" json:"line_total"`
	Notes        string          `json:"notes"`
}

// Payment is a single tender applied to an order.
type Payment struct {
	BaseModel
	OrderID   uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Reference string          `json:"reference"`
}
