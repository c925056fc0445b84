package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock movement types.
const (
	StockMovementSale       = "sale"
	StockMovementRefund     = "refund"
	StockMovementAdjustment = "adjustment"
	StockMovementTransfer   = "transfer"
	StockMovementPurchase   = "purchase"
)

// StockMovement records one signed inventory change. Movements are never
// modified or deleted; cancellations and refunds create inverse entries.
// Per product and branch the entries form a chain: each BalanceBefore equals
// the previous entry's BalanceAfter.
type StockMovement struct {
	BaseModel
	TenantID      uuid.UUID       `gorm:"type:uuid;index" json:"tenant_id"`
	BranchID      uuid.UUID       `gorm:"type:uuid;index" json:"branch_id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;index" json:"product_id"`
	Sequence      int64           `gorm:"index" json:"sequence"` // monotonic per (branch, product)
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,2)" json:"quantity"` // signed: positive in, negative out
	BalanceBefore decimal.Decimal `gorm:"type:decimal(12,2)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(12,2)" json:"balance_after"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid" json:"reference_id"` // originating order or refund log
	Reason        string          `json:"reason"`
}

// Cash register transaction types.
const (
	CashTxOpening         = "opening"
	CashTxDeposit         = "deposit"
	CashTxWithdrawal      = "withdrawal"
	CashTxSale            = "sale"
	CashTxRefund          = "refund"
	CashTxExpense         = "expense"
	CashTxSupplierPayment = "supplier_payment"
	CashTxAdjustment      = "adjustment"
	CashTxTransferOut     = "transfer_out"
	CashTxTransferIn      = "transfer_in"
)

// CashRegisterTransaction is one entry in the branch cash ledger. Entries are
// append-only and strictly ordered per branch: BalanceBefore is always read
// from the latest committed entry, never from a cached running total.
type CashRegisterTransaction struct {
	BaseModel
	TenantID            uuid.UUID       `gorm:"type:uuid;index" json:"tenant_id"`
	BranchID            uuid.UUID       `gorm:"type:uuid;index" json:"branch_id"`
	ShiftID             *uuid.UUID      `gorm:"type:uuid;index" json:"shift_id"`
	UserID              uuid.UUID       `gorm:"type:uuid" json:"user_id"`
	Sequence            int64           `gorm:"index" json:"sequence"` // monotonic per branch
	Type                string          `gorm:"index" json:"type"`
	Amount              decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"` // signed
	BalanceBefore       decimal.Decimal `gorm:"type:decimal(12,2)" json:"balance_before"`
	BalanceAfter        decimal.Decimal `gorm:"type:decimal(12,2)" json:"balance_after"`
	Description         string          `json:"description"`
	ReferenceID         *uuid.UUID      `gorm:"type:uuid" json:"reference_id"`
	TransferReferenceID *uuid.UUID      `gorm:"type:uuid" json:"transfer_reference_id"` // paired entry of an inter-branch transfer
}

// RefundLog records a full or partial refund of a completed order together
// with the serialized stock deltas that were applied to compensate it.
type RefundLog struct {
	BaseModel
	TenantID    uuid.UUID       `gorm:"type:uuid;index" json:"tenant_id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	UserID      uuid.UUID       `gorm:"type:uuid" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Reason      string          `json:"reason"`
	StockDeltas string          `json:"stock_deltas"` // JSON list of {product_id, quantity}
}

// Expense is a cash outflow posted against a shift (supplies, petty cash).
// The matching ledger entry is created in the same transaction.
type Expense struct {
	BaseModel
	TenantID    uuid.UUID       `gorm:"type:uuid;index" json:"tenant_id"`
	BranchID    uuid.UUID       `gorm:"type:uuid;index" json:"branch_id"`
	ShiftID     *uuid.UUID      `gorm:"type:uuid;index" json:"shift_id"`
	UserID      uuid.UUID       `gorm:"type:uuid" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Description string          `json:"description"`
	SpentAt     time.Time       `json:"spent_at"`
}
