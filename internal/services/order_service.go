package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/utils"
)

// OrderService builds orders from line items, settles them against payments
// and emits the stock and cash ledger entries in one atomic commit.
type OrderService struct {
	db    *gorm.DB
	audit AuditLogger
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, audit AuditLogger) *OrderService {
	return &OrderService{db: db, audit: audit}
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
	Notes     string          `json:"notes"`
}

// RefundItemInput selects a line and quantity to return to stock.
type RefundItemInput struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// RefundInput describes a full or partial refund.
type RefundInput struct {
	Amount *decimal.Decimal  `json:"amount"` // nil refunds the full remaining amount
	Reason string            `json:"reason"`
	Items  []RefundItemInput `json:"items"` // lines to restock; empty on a full refund restocks everything
}

// Create opens a Draft order under the caller's active shift, snapshotting
// product price and tax settings per line.
func (s *OrderService) Create(user *models.User, items []ItemInput, notes string) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		shift, err := requireOpenShift(tx, user.ID)
		if err != nil {
			return err
		}

		tenant, err := loadTenant(tx, user.TenantID)
		if err != nil {
			return err
		}

		order = models.Order{
			TenantID:     user.TenantID,
			BranchID:     shift.BranchID,
			UserID:       user.ID,
			ShiftID:      &shift.ID,
			OrderNumber:  generateOrderNumber(),
			Status:       models.OrderStatusDraft,
			Currency:     tenant.Currency,
			TaxRate:      tenant.DefaultTaxRate,
			TaxInclusive: tenant.TaxInclusiveDefault,
			Notes:        notes,
		}

		for _, input := range items {
			item, err := buildItem(tx, tenant, shift.BranchID, input)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
		}

		recomputeTotals(&order, tenant)
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "order",
		EntityID: order.ID,
		Action:   "create",
		After:    order,
	})
	return &order, nil
}

// buildItem validates a requested line against the product catalog and stock
// and returns the snapshotted order item.
func buildItem(tx *gorm.DB, tenant *models.Tenant, branchID uuid.UUID, input ItemInput) (*models.OrderItem, error) {
	if !input.Quantity.IsPositive() {
		return nil, newError(CodeValidation, "quantity must be positive, got %s", input.Quantity)
	}
	if input.Discount.IsNegative() {
		return nil, newError(CodeValidation, "discount cannot be negative")
	}

	var product models.Product
	if err := tx.First(&product, "id = ? AND tenant_id = ?", input.ProductID, tenant.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newError(CodeNotFound, "product %s not found", input.ProductID)
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, newError(CodeProductInactive, "product %q is not active", product.Name)
	}

	if product.TrackStock && !tenant.AllowNegativeStock {
		onHand, err := currentStock(tx, product.ID, branchID)
		if err != nil {
			return nil, err
		}
		if onHand.LessThan(input.Quantity) {
			return nil, newError(CodeInsufficientStock, "product %q has %s in stock, requested %s", product.Name, onHand, input.Quantity)
		}
	}

	taxRate := tenant.DefaultTaxRate
	if product.TaxRate != nil {
		taxRate = *product.TaxRate
	}
	taxInclusive := tenant.TaxInclusiveDefault
	if product.TaxInclusive != nil {
		taxInclusive = *product.TaxInclusive
	}

	item := &models.OrderItem{
		ProductID:    product.ID,
		ProductName:  product.Name,
		UnitPrice:    product.Price,
		TaxRate:      taxRate,
		TaxInclusive: taxInclusive,
		Quantity:     input.Quantity,
		Discount:     round2(input.Discount),
		Notes:        input.Notes,
	}

	_, tax, gross := lineAmounts(item.UnitPrice, item.Quantity, item.TaxRate, item.TaxInclusive, item.Discount)
	item.TaxAmount = tax
	item.LineTotal = gross
	return item, nil
}

// recomputeTotals rederives every order-level amount from the current line
// items. Each derived value is rounded to two places as it is computed.
func recomputeTotals(order *models.Order, tenant *models.Tenant) {
	subtotal := decimal.Zero
	discount := decimal.Zero
	tax := decimal.Zero

	for i := range order.Items {
		item := &order.Items[i]
		net, lineTax, gross := lineAmounts(item.UnitPrice, item.Quantity, item.TaxRate, item.TaxInclusive, item.Discount)
		item.TaxAmount = lineTax
		item.LineTotal = gross

		subtotal = subtotal.Add(net).Add(item.Discount)
		discount = discount.Add(item.Discount)
		tax = tax.Add(lineTax)
	}

	order.Subtotal = round2(subtotal)
	order.DiscountAmount = round2(discount)
	order.TaxAmount = round2(tax)

	serviceBase := order.Subtotal.Sub(order.DiscountAmount)
	order.ServiceChargeAmount = decimal.Zero
	if tenant.ServiceChargeRate.IsPositive() {
		order.ServiceChargeAmount = round2(serviceBase.Mul(tenant.ServiceChargeRate).Div(hundred))
	}

	order.Total = round2(order.Subtotal.Sub(order.DiscountAmount).Add(order.TaxAmount).Add(order.ServiceChargeAmount))
	order.AmountDue = order.Total.Sub(order.AmountPaid)
}

// lockOrder loads an order with its lines under a row lock, scoped to the
// caller's tenant.
func lockOrder(tx *gorm.DB, user *models.User, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withRowLock(tx).
		First(&order, "id = ? AND tenant_id = ?", orderID, user.TenantID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, newError(CodeNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Where("order_id = ?", order.ID).Order("created_at").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// mutableState rejects mutations of orders that already left Draft/Pending.
func mutableState(order *models.Order) error {
	switch order.Status {
	case models.OrderStatusDraft, models.OrderStatusPending:
		return nil
	case models.OrderStatusCompleted:
		return newError(CodeOrderAlreadyCompleted, "order %s is already completed", order.OrderNumber)
	default:
		return newError(CodeOrderNotDraft, "order %s is %s and can no longer be modified", order.OrderNumber, order.Status)
	}
}

// AddItem appends a line to a Draft/Pending order and recomputes its totals.
func (s *OrderService) AddItem(user *models.User, orderID uuid.UUID, input ItemInput) (*models.Order, error) {
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, user, orderID)
		if err != nil {
			return err
		}
		if err := mutableState(order); err != nil {
			return err
		}

		tenant, err := loadTenant(tx, user.TenantID)
		if err != nil {
			return err
		}

		item, err := buildItem(tx, tenant, order.BranchID, input)
		if err != nil {
			return err
		}
		item.OrderID = order.ID
		if err := tx.Create(item).Error; err != nil {
			return err
		}

		order.Items = append(order.Items, *item)
		recomputeTotals(order, tenant)
		return saveTotals(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RemoveItem deletes a line from a Draft/Pending order and recomputes totals.
func (s *OrderService) RemoveItem(user *models.User, orderID, itemID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, user, orderID)
		if err != nil {
			return err
		}
		if err := mutableState(order); err != nil {
			return err
		}

		found := false
		remaining := order.Items[:0]
		for _, item := range order.Items {
			if item.ID == itemID {
				found = true
				continue
			}
			remaining = append(remaining, item)
		}
		if !found {
			return newError(CodeNotFound, "order item %s not found", itemID)
		}

		if err := tx.Delete(&models.OrderItem{}, "id = ? AND order_id = ?", itemID, order.ID).Error; err != nil {
			return err
		}
		order.Items = remaining

		tenant, err := loadTenant(tx, user.TenantID)
		if err != nil {
			return err
		}
		recomputeTotals(order, tenant)
		return saveTotals(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func saveTotals(tx *gorm.DB, order *models.Order) error {
	return tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"subtotal":              order.Subtotal,
		"discount_amount":       order.DiscountAmount,
		"tax_amount":            order.TaxAmount,
		"service_charge_amount": order.ServiceChargeAmount,
		"total":                 order.Total,
		"amount_due":            order.AmountDue,
	}).Error
}

// Complete settles the order: payments are validated, stock movements and the
// cash ledger entry are written, and the shift totals are updated, all inside
// one transaction. Partial application is never visible.
func (s *OrderService) Complete(user *models.User, orderID uuid.UUID, payments []PaymentInput) (*models.Order, error) {
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, user, orderID)
		if err != nil {
			return err
		}
		if err := mutableState(order); err != nil {
			return err
		}
		if len(order.Items) == 0 {
			return newError(CodeOrderEmpty, "order %s has no items", order.OrderNumber)
		}

		tenant, err := loadTenant(tx, user.TenantID)
		if err != nil {
			return err
		}

		shift, err := requireOpenShift(tx, user.ID)
		if err != nil {
			return err
		}
		if shift.BranchID != order.BranchID {
			return newError(CodeShiftBranchMismatch, "order %s belongs to a different branch than the open shift", order.OrderNumber)
		}

		// Product state is validated again at settlement: an item added while
		// the product was active must not complete after deactivation.
		for _, item := range order.Items {
			var product models.Product
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return newError(CodeNotFound, "product %s not found", item.ProductID)
				}
				return err
			}
			if !product.IsActive {
				return newError(CodeProductInactive, "product %q is not active", product.Name)
			}
		}

		result, err := ValidatePayments(tenant, order.Total, payments)
		if err != nil {
			return err
		}

		if _, err := lockBranch(tx, order.BranchID); err != nil {
			return err
		}

		for _, item := range order.Items {
			var product models.Product
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				return err
			}
			if !product.TrackStock {
				continue
			}
			if _, err := applyMovement(tx, stockMove{
				Tenant:      tenant,
				BranchID:    order.BranchID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity.Neg(),
				Type:        models.StockMovementSale,
				ReferenceID: &order.ID,
				Reason:      fmt.Sprintf("sale %s", order.OrderNumber),
			}); err != nil {
				return err
			}
		}

		for _, p := range payments {
			payment := models.Payment{
				OrderID:   order.ID,
				Method:    normalizeMethod(p.Method),
				Amount:    round2(p.Amount),
				Reference: p.Reference,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			order.Payments = append(order.Payments, payment)
		}

		if result.Cash.IsPositive() {
			if _, err := appendEntry(tx, cashAppend{
				TenantID:    user.TenantID,
				BranchID:    order.BranchID,
				UserID:      user.ID,
				ShiftID:     &shift.ID,
				Type:        models.CashTxSale,
				Amount:      result.Cash,
				Description: fmt.Sprintf("cash sale %s", order.OrderNumber),
				ReferenceID: &order.ID,
			}); err != nil {
				return err
			}
		}

		if err := recordOrderCompletion(tx, shift, result.Cash, result.Card); err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":        models.OrderStatusCompleted,
			"shift_id":      shift.ID,
			"amount_paid":   result.Paid,
			"change_amount": result.Change,
			"amount_due":    result.AmountDue,
			"completed_at":  now,
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return err
		}

		order.Status = models.OrderStatusCompleted
		order.ShiftID = &shift.ID
		order.AmountPaid = result.Paid
		order.ChangeAmount = result.Change
		order.AmountDue = result.AmountDue
		order.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "order",
		EntityID: order.ID,
		Action:   "complete",
		After:    order,
	})
	return order, nil
}

// Cancel voids a Draft/Pending order. Completed orders must be refunded
// instead, so cancellation never touches stock or the cash ledger.
func (s *OrderService) Cancel(user *models.User, orderID uuid.UUID, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, user, orderID)
		if err != nil {
			return err
		}
		if err := mutableState(order); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"status":        models.OrderStatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		}).Error; err != nil {
			return err
		}

		order.Status = models.OrderStatusCancelled
		order.CancelReason = reason
		order.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "order",
		EntityID: order.ID,
		Action:   "cancel",
		After:    order,
	})
	return order, nil
}

type refundStockDelta struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Refund reverses a completed order in full or in part: a RefundLog is
// written together with compensating stock movements and a negative cash
// ledger entry, and the caller's shift totals absorb the cash outflow.
func (s *OrderService) Refund(user *models.User, orderID uuid.UUID, input RefundInput) (*models.Order, *models.RefundLog, error) {
	if input.Reason == "" {
		return nil, nil, newError(CodeRefundReasonRequired, "refund requires a reason")
	}

	var order *models.Order
	var refundLog models.RefundLog
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, user, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case models.OrderStatusCompleted, models.OrderStatusPartiallyRefunded:
		default:
			return newError(CodeOrderNotCompleted, "order %s is %s, only completed orders can be refunded", order.OrderNumber, order.Status)
		}

		remaining := order.Total.Sub(order.RefundedAmount)
		amount := remaining
		if input.Amount != nil {
			amount = round2(*input.Amount)
		}
		if !amount.IsPositive() {
			return newError(CodeValidation, "refund amount must be positive")
		}
		if amount.GreaterThan(remaining) {
			return newError(CodeRefundExceedsTotal, "refund %s exceeds the remaining refundable %s", amount, remaining)
		}
		fullRefund := amount.Equal(remaining)

		tenant, err := loadTenant(tx, user.TenantID)
		if err != nil {
			return err
		}

		shift, err := requireOpenShift(tx, user.ID)
		if err != nil {
			return err
		}
		if shift.BranchID != order.BranchID {
			return newError(CodeShiftBranchMismatch, "order %s belongs to a different branch than the open shift", order.OrderNumber)
		}

		if _, err := lockBranch(tx, order.BranchID); err != nil {
			return err
		}

		deltas, err := refundDeltas(order, input, fullRefund)
		if err != nil {
			return err
		}

		serialized, err := json.Marshal(deltas)
		if err != nil {
			return err
		}

		refundLog = models.RefundLog{
			TenantID:    user.TenantID,
			OrderID:     order.ID,
			UserID:      user.ID,
			Amount:      amount,
			Reason:      input.Reason,
			StockDeltas: string(serialized),
		}
		if err := tx.Create(&refundLog).Error; err != nil {
			return err
		}

		for _, delta := range deltas {
			if _, err := applyMovement(tx, stockMove{
				Tenant:      tenant,
				BranchID:    order.BranchID,
				ProductID:   delta.ProductID,
				Quantity:    delta.Quantity,
				Type:        models.StockMovementRefund,
				ReferenceID: &refundLog.ID,
				Reason:      fmt.Sprintf("refund %s", order.OrderNumber),
			}); err != nil {
				return err
			}
		}

		if _, err := appendEntry(tx, cashAppend{
			TenantID:    user.TenantID,
			BranchID:    order.BranchID,
			UserID:      user.ID,
			ShiftID:     &shift.ID,
			Type:        models.CashTxRefund,
			Amount:      amount.Neg(),
			Description: fmt.Sprintf("refund %s", order.OrderNumber),
			ReferenceID: &refundLog.ID,
		}); err != nil {
			return err
		}

		if err := recordRefund(tx, shift, amount); err != nil {
			return err
		}

		refunded := round2(order.RefundedAmount.Add(amount))
		status := models.OrderStatusPartiallyRefunded
		if fullRefund {
			status = models.OrderStatusRefunded
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"status":          status,
			"refunded_amount": refunded,
		}).Error; err != nil {
			return err
		}

		order.Status = status
		order.RefundedAmount = refunded
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "refund_log",
		EntityID: refundLog.ID,
		Action:   "refund",
		After:    refundLog,
	})
	return order, &refundLog, nil
}

// refundDeltas resolves which stock quantities to return. An explicit item
// list wins; otherwise a full refund restocks every tracked line and a
// partial amount-only refund moves no stock.
func refundDeltas(order *models.Order, input RefundInput, fullRefund bool) ([]refundStockDelta, error) {
	if len(input.Items) > 0 {
		byID := make(map[uuid.UUID]*models.OrderItem, len(order.Items))
		for i := range order.Items {
			byID[order.Items[i].ID] = &order.Items[i]
		}

		deltas := make([]refundStockDelta, 0, len(input.Items))
		for _, ri := range input.Items {
			item, ok := byID[ri.ItemID]
			if !ok {
				return nil, newError(CodeNotFound, "order item %s not found", ri.ItemID)
			}
			qty := ri.Quantity
			if qty.IsZero() {
				qty = item.Quantity
			}
			if !qty.IsPositive() || qty.GreaterThan(item.Quantity) {
				return nil, newError(CodeValidation, "refund quantity %s is out of range for item %s", qty, ri.ItemID)
			}
			deltas = append(deltas, refundStockDelta{ProductID: item.ProductID, Quantity: qty})
		}
		return deltas, nil
	}

	if !fullRefund {
		return []refundStockDelta{}, nil
	}

	deltas := make([]refundStockDelta, 0, len(order.Items))
	for _, item := range order.Items {
		deltas = append(deltas, refundStockDelta{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return deltas, nil
}

// List returns the caller's orders, newest first.
func (s *OrderService) List(user *models.User, status string, pg utils.Pagination) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{}).Where("tenant_id = ? AND user_id = ?", user.TenantID, user.ID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("Payments").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Get returns a single order within the caller's tenant.
func (s *OrderService) Get(user *models.User, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Preload("Payments").
		First(&order, "id = ? AND tenant_id = ?", orderID, user.TenantID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, newError(CodeNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// generateOrderNumber returns a human-readable receipt number. The date prefix
// keeps numbers sortable on printed receipts; the random suffix avoids
// collisions between tills creating orders in the same instant.
func generateOrderNumber() string {
	suffix := uuid.NewString()
	return fmt.Sprintf("#%s-%s", time.Now().Format("20060102"), suffix[:8])
}
