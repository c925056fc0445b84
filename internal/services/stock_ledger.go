package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/utils"
)

// StockLedger emits signed, balance-chained stock movements and keeps the
// denormalized BranchStock counter in step, always inside the transaction of
// the operation that caused the change.
type StockLedger struct {
	db    *gorm.DB
	audit AuditLogger
}

// NewStockLedger constructs a StockLedger.
func NewStockLedger(db *gorm.DB, audit AuditLogger) *StockLedger {
	return &StockLedger{db: db, audit: audit}
}

type stockMove struct {
	Tenant      *models.Tenant
	BranchID    uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal // signed: positive in, negative out
	Type        string
	ReferenceID *uuid.UUID
	Reason      string
}

// applyMovement writes one chained movement and updates the stock counter.
// It rejects movements that would drive the balance negative unless the
// tenant allows negative stock. Runs inside the caller's transaction.
func applyMovement(tx *gorm.DB, m stockMove) (*models.StockMovement, error) {
	var stock models.BranchStock
	err := withRowLock(tx).
		Where("product_id = ? AND branch_id = ?", m.ProductID, m.BranchID).
		First(&stock).Error
	if err == gorm.ErrRecordNotFound {
		stock = models.BranchStock{
			ProductID: m.ProductID,
			BranchID:  m.BranchID,
			Quantity:  decimal.Zero,
		}
		if err := tx.Create(&stock).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	balanceBefore := stock.Quantity
	balanceAfter := balanceBefore.Add(m.Quantity)

	if balanceAfter.IsNegative() && !m.Tenant.AllowNegativeStock {
		return nil, newError(CodeInsufficientStock, "product %s has %s in stock, movement of %s would leave %s",
			m.ProductID, balanceBefore, m.Quantity, balanceAfter)
	}

	var last models.StockMovement
	var sequence int64 = 1
	err = tx.Where("product_id = ? AND branch_id = ?", m.ProductID, m.BranchID).
		Order("sequence desc").
		First(&last).Error
	if err == nil {
		sequence = last.Sequence + 1
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	movement := models.StockMovement{
		TenantID:      m.Tenant.ID,
		BranchID:      m.BranchID,
		ProductID:     m.ProductID,
		Sequence:      sequence,
		Type:          m.Type,
		Quantity:      m.Quantity,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		ReferenceID:   m.ReferenceID,
		Reason:        m.Reason,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&stock).Update("quantity", balanceAfter).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// currentStock returns the on-hand quantity for a product at a branch.
// A missing counter row means zero.
func currentStock(tx *gorm.DB, productID, branchID uuid.UUID) (decimal.Decimal, error) {
	var stock models.BranchStock
	err := tx.Where("product_id = ? AND branch_id = ?", productID, branchID).First(&stock).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return stock.Quantity, nil
}

// Adjust records a manual stock correction (stocktake, breakage, goods-in).
func (s *StockLedger) Adjust(user *models.User, branchID, productID uuid.UUID, quantity decimal.Decimal, reason string) (*models.StockMovement, error) {
	if quantity.IsZero() {
		return nil, newError(CodeValidation, "adjustment quantity must be non-zero")
	}

	var movement *models.StockMovement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		tenant, err := loadTenant(tx, user.TenantID)
		if err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, "id = ? AND tenant_id = ?", productID, user.TenantID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(CodeNotFound, "product %s not found", productID)
			}
			return err
		}

		movement, err = applyMovement(tx, stockMove{
			Tenant:    tenant,
			BranchID:  branchID,
			ProductID: productID,
			Quantity:  quantity,
			Type:      models.StockMovementAdjustment,
			Reason:    reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "stock_movement",
		EntityID: movement.ID,
		Action:   "adjust",
		After:    movement,
	})
	return movement, nil
}

// ListMovements returns the movement chain for a product at a branch, newest first.
func (s *StockLedger) ListMovements(tenantID, branchID, productID uuid.UUID, pg utils.Pagination) ([]models.StockMovement, int64, error) {
	query := s.db.Model(&models.StockMovement{}).
		Where("tenant_id = ? AND branch_id = ? AND product_id = ?", tenantID, branchID, productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []models.StockMovement
	if err := query.Order("sequence desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// loadTenant fetches tenant configuration inside a transaction.
func loadTenant(tx *gorm.DB, tenantID uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := tx.First(&tenant, "id = ?", tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newError(CodeNotFound, "tenant %s not found", tenantID)
		}
		return nil, err
	}
	return &tenant, nil
}
