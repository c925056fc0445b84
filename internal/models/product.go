package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. Price and tax settings are snapshotted onto
// order items at the moment of sale, so later edits never rewrite history.
type Product struct {
	BaseModel
	TenantID     uuid.UUID        `gorm:"type:uuid;index" json:"tenant_id"`
	CategoryID   *uuid.UUID       `gorm:"type:uuid;index" json:"category_id"`
	Category     *Category        `json:"category,omitempty"`
	SKU          string           `gorm:"index" json:"sku"`
	Name         string           `json:"name"`
	Price        decimal.Decimal  `gorm:"type:decimal(12,2)" json:"price"`
	TaxRate      *decimal.Decimal `gorm:"type:decimal(5,2)" json:"tax_rate"` // nil falls back to tenant default
	TaxInclusive *bool            `json:"tax_inclusive"`                     // nil falls back to tenant default
	TrackStock   bool             `gorm:"default:true" json:"track_stock"`
	IsActive     bool             `gorm:"default:true" json:"is_active"`
}

// Category groups products for the admin console.
type Category struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;index" json:"tenant_id"`
	Name     string    `json:"name"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
}

// BranchStock is the denormalized current-stock counter per (product, branch).
// It is only ever mutated inside the same transaction as the StockMovement
// that explains the change, and the movement chain is the source of truth.
type BranchStock struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;index:idx_branch_stock,unique" json:"product_id"`
	BranchID  uuid.UUID       `gorm:"type:uuid;index:idx_branch_stock,unique" json:"branch_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(12,2)" json:"quantity"`
}
