package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shift statuses. Handover does not change the status: the shift stays open
// under a new owner, so the lifecycle is a single tagged state rather than a
// set of boolean flags.
const (
	ShiftStatusOpen        = "open"
	ShiftStatusClosed      = "closed"
	ShiftStatusForceClosed = "force_closed"
)

// Shift is a bounded cashier session. Version is the optimistic concurrency
// token: every close, force-close and handover commits with a compare-and-swap
// on it, so racing terminations resolve to exactly one winner.
type Shift struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;index" json:"tenant_id"`
	BranchID uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	UserID   uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Status   string    `gorm:"index;default:open" json:"status"`
	Version  int64     `gorm:"default:1" json:"version"`

	OpeningBalance  decimal.Decimal  `gorm:"type:decimal(12,2)" json:"opening_balance"`
	ExpectedBalance decimal.Decimal  `gorm:"type:decimal(12,2)" json:"expected_balance"`
	ClosingBalance  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"closing_balance"`
	Difference      *decimal.Decimal `gorm:"type:decimal(12,2)" json:"difference"`

	TotalCash   decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_cash"`
	TotalCard   decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_card"`
	TotalOrders int             `json:"total_orders"`

	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ClosingNotes   string     `json:"closing_notes"`

	ReconciledAt      *time.Time       `json:"reconciled_at"`
	ReconciledBalance *decimal.Decimal `gorm:"type:decimal(12,2)" json:"reconciled_balance"`

	ForceClosedBy    *uuid.UUID `gorm:"type:uuid" json:"force_closed_by"`
	ForceCloseReason string     `json:"force_close_reason"`

	HandedOverFrom  *uuid.UUID       `gorm:"type:uuid" json:"handed_over_from"`
	HandoverBalance *decimal.Decimal `gorm:"type:decimal(12,2)" json:"handover_balance"`
	HandedOverAt    *time.Time       `json:"handed_over_at"`
	HandoverNotes   string           `json:"handover_notes"`
}

// IsOpen reports whether the shift still accepts orders and ledger entries.
func (s *Shift) IsOpen() bool {
	return s.Status == ShiftStatusOpen
}
