package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/models"
)

// ShiftService owns the cashier session lifecycle: open, accumulate totals,
// and terminate via close, force-close or handover. Every termination commits
// with a compare-and-swap on the shift's version column, so concurrent
// terminations resolve to exactly one winner and the losers get a conflict.
type ShiftService struct {
	db    *gorm.DB
	audit AuditLogger
}

// NewShiftService constructs a ShiftService.
func NewShiftService(db *gorm.DB, audit AuditLogger) *ShiftService {
	return &ShiftService{db: db, audit: audit}
}

// openShiftForUser returns the user's open shift, or nil when there is none.
func openShiftForUser(tx *gorm.DB, userID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := tx.Where("user_id = ? AND status = ?", userID, models.ShiftStatusOpen).
		First(&shift).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// requireOpenShift returns the user's open shift or NO_OPEN_SHIFT.
func requireOpenShift(tx *gorm.DB, userID uuid.UUID) (*models.Shift, error) {
	shift, err := openShiftForUser(tx, userID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, newError(CodeNoOpenShift, "no open shift for user %s", userID)
	}
	return shift, nil
}

// casShift commits a shift mutation only if the version read earlier is still
// current, bumping the version in the same statement. A zero rows-affected
// result means another request terminated or mutated the shift first.
func casShift(tx *gorm.DB, shift *models.Shift, updates map[string]interface{}) error {
	updates["version"] = shift.Version + 1
	res := tx.Model(&models.Shift{}).
		Where("id = ? AND version = ?", shift.ID, shift.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newError(CodeShiftConcurrencyConflict, "shift %s was modified concurrently, refetch and retry", shift.ID)
	}
	shift.Version++
	return nil
}

// Open starts a new shift for the user with the declared drawer float.
// A user can hold at most one open shift at a time.
func (s *ShiftService) Open(user *models.User, branchID uuid.UUID, openingBalance decimal.Decimal) (*models.Shift, error) {
	if openingBalance.IsNegative() {
		return nil, newError(CodeValidation, "opening balance cannot be negative")
	}

	var shift models.Shift
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := openShiftForUser(tx, user.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return newError(CodeShiftUserHasOpenShift, "user %s already has an open shift", user.ID)
		}

		branch, err := lockBranch(tx, branchID)
		if err != nil {
			return err
		}
		if branch.TenantID != user.TenantID {
			return newError(CodeShiftBranchMismatch, "branch %s does not belong to the caller's tenant", branchID)
		}

		now := time.Now()
		shift = models.Shift{
			TenantID:        user.TenantID,
			BranchID:        branchID,
			UserID:          user.ID,
			Status:          models.ShiftStatusOpen,
			Version:         1,
			OpeningBalance:  round2(openingBalance),
			ExpectedBalance: round2(openingBalance),
			TotalCash:       decimal.Zero,
			TotalCard:       decimal.Zero,
			OpenedAt:        now,
			LastActivityAt:  now,
		}
		if err := tx.Create(&shift).Error; err != nil {
			return err
		}

		// The opening entry re-bases the branch ledger on the counted float,
		// so the chained balance always reflects the actual drawer.
		last, err := lastEntry(tx, branchID)
		if err != nil {
			return err
		}
		ledgerBalance := decimal.Zero
		if last != nil {
			ledgerBalance = last.BalanceAfter
		}

		_, err = appendEntry(tx, cashAppend{
			TenantID:    user.TenantID,
			BranchID:    branchID,
			UserID:      user.ID,
			ShiftID:     &shift.ID,
			Type:        models.CashTxOpening,
			Amount:      openingBalance.Sub(ledgerBalance),
			Description: "shift opening float",
			ReferenceID: &shift.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "shift",
		EntityID: shift.ID,
		Action:   "open",
		After:    shift,
	})
	return &shift, nil
}

// recordOrderCompletion folds a completed order into the shift's running
// totals and refreshes the expected drawer balance. Card payments never enter
// the drawer, so only cash moves the expected balance. Runs inside the order
// completion transaction; a CAS failure aborts the whole commit.
func recordOrderCompletion(tx *gorm.DB, shift *models.Shift, cashTendered, cardAmount decimal.Decimal) error {
	shift.TotalCash = round2(shift.TotalCash.Add(cashTendered))
	shift.TotalCard = round2(shift.TotalCard.Add(cardAmount))
	shift.TotalOrders++
	shift.ExpectedBalance = round2(shift.OpeningBalance.Add(shift.TotalCash))
	now := time.Now()
	shift.LastActivityAt = now

	return casShift(tx, shift, map[string]interface{}{
		"total_cash":       shift.TotalCash,
		"total_card":       shift.TotalCard,
		"total_orders":     shift.TotalOrders,
		"expected_balance": shift.ExpectedBalance,
		"last_activity_at": now,
	})
}

// recordRefund deducts a cash refund from the shift's running totals.
func recordRefund(tx *gorm.DB, shift *models.Shift, cashAmount decimal.Decimal) error {
	shift.TotalCash = round2(shift.TotalCash.Sub(cashAmount))
	shift.ExpectedBalance = round2(shift.OpeningBalance.Add(shift.TotalCash))
	now := time.Now()
	shift.LastActivityAt = now

	return casShift(tx, shift, map[string]interface{}{
		"total_cash":       shift.TotalCash,
		"expected_balance": shift.ExpectedBalance,
		"last_activity_at": now,
	})
}

// Close terminates the caller's open shift against a counted closing balance.
func (s *ShiftService) Close(user *models.User, closingBalance decimal.Decimal, notes string) (*models.Shift, error) {
	var shift *models.Shift
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		shift, err = openShiftForUser(tx, user.ID)
		if err != nil {
			return err
		}
		if shift == nil {
			return newError(CodeShiftAlreadyClosed, "user %s has no open shift to close", user.ID)
		}

		tenant, err := loadTenant(tx, user.TenantID)
		if err != nil {
			return err
		}
		if tenant.RequireCashReconciliation && shift.ReconciledAt == nil {
			return newError(CodeCashReconciliationRequired, "cash register must be reconciled before closing")
		}

		closing := round2(closingBalance)
		difference := round2(closing.Sub(shift.ExpectedBalance))
		now := time.Now()

		if err := casShift(tx, shift, map[string]interface{}{
			"status":          models.ShiftStatusClosed,
			"closing_balance": closing,
			"difference":      difference,
			"closed_at":       now,
			"closing_notes":   notes,
		}); err != nil {
			return err
		}

		shift.Status = models.ShiftStatusClosed
		shift.ClosingBalance = &closing
		shift.Difference = &difference
		shift.ClosedAt = &now
		shift.ClosingNotes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "shift",
		EntityID: shift.ID,
		Action:   "close",
		After:    shift,
	})
	return shift, nil
}

// ForceClose terminates any shift by id, admin only. When no actual balance
// was counted the expected balance is used and the difference is zero.
func (s *ShiftService) ForceClose(admin *models.User, shiftID uuid.UUID, reason string, actualBalance *decimal.Decimal, notes string) (*models.Shift, error) {
	if !admin.IsAdmin() {
		return nil, newError(CodeValidation, "force-close requires the admin role")
	}
	if reason == "" {
		return nil, newError(CodeShiftForceCloseReason, "force-close requires a reason")
	}

	var shift models.Shift
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&shift, "id = ? AND tenant_id = ?", shiftID, admin.TenantID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(CodeNotFound, "shift %s not found", shiftID)
			}
			return err
		}
		if !shift.IsOpen() {
			return newError(CodeShiftAlreadyClosed, "shift %s is already closed", shiftID)
		}
		if admin.BranchID != nil && *admin.BranchID != shift.BranchID {
			return newError(CodeShiftBranchMismatch, "shift %s belongs to another branch", shiftID)
		}

		closing := shift.ExpectedBalance
		if actualBalance != nil {
			closing = round2(*actualBalance)
		}
		difference := round2(closing.Sub(shift.ExpectedBalance))
		now := time.Now()

		if err := casShift(tx, &shift, map[string]interface{}{
			"status":             models.ShiftStatusForceClosed,
			"closing_balance":    closing,
			"difference":         difference,
			"closed_at":          now,
			"closing_notes":      notes,
			"force_closed_by":    admin.ID,
			"force_close_reason": reason,
		}); err != nil {
			return err
		}

		shift.Status = models.ShiftStatusForceClosed
		shift.ClosingBalance = &closing
		shift.Difference = &difference
		shift.ClosedAt = &now
		shift.ClosingNotes = notes
		shift.ForceClosedBy = &admin.ID
		shift.ForceCloseReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: admin.TenantID,
		UserID:   admin.ID,
		Entity:   "shift",
		EntityID: shift.ID,
		Action:   "force_close",
		After:    shift,
	})
	return &shift, nil
}

// Handover reassigns the caller's open shift to another cashier. The shift id
// and totals survive; only the owner, the handover fields and the activity
// clock change, and the shift stays open under the new owner.
func (s *ShiftService) Handover(user *models.User, shiftID, toUserID uuid.UUID, currentBalance decimal.Decimal, notes string) (*models.Shift, error) {
	if toUserID == user.ID {
		return nil, newError(CodeShiftHandoverToSameUser, "cannot hand a shift over to its current owner")
	}

	var shift *models.Shift
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		shift, err = openShiftForUser(tx, user.ID)
		if err != nil {
			return err
		}
		if shift == nil {
			return newError(CodeShiftCannotHandoverClosed, "user %s has no open shift to hand over", user.ID)
		}
		if shift.ID != shiftID {
			return newError(CodeNotFound, "shift %s is not the caller's open shift", shiftID)
		}

		var target models.User
		if err := tx.First(&target, "id = ? AND tenant_id = ?", toUserID, user.TenantID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(CodeNotFound, "target user %s not found", toUserID)
			}
			return err
		}

		targetShift, err := openShiftForUser(tx, toUserID)
		if err != nil {
			return err
		}
		if targetShift != nil {
			return newError(CodeShiftUserHasOpenShift, "target user %s already has an open shift", toUserID)
		}

		balance := round2(currentBalance)
		now := time.Now()

		if err := casShift(tx, shift, map[string]interface{}{
			"user_id":          toUserID,
			"handed_over_from": user.ID,
			"handover_balance": balance,
			"handed_over_at":   now,
			"handover_notes":   notes,
			"last_activity_at": now,
		}); err != nil {
			return err
		}

		shift.UserID = toUserID
		shift.HandedOverFrom = &user.ID
		shift.HandoverBalance = &balance
		shift.HandedOverAt = &now
		shift.HandoverNotes = notes
		shift.LastActivityAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "shift",
		EntityID: shift.ID,
		Action:   "handover",
		After:    shift,
	})
	return shift, nil
}

// Reconcile records the counted drawer cash against the ledger-derived
// balance for the caller's open shift. Tenants can require this before Close.
func (s *ShiftService) Reconcile(user *models.User, countedBalance decimal.Decimal, notes string) (*models.Shift, error) {
	var shift *models.Shift
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		shift, err = requireOpenShift(tx, user.ID)
		if err != nil {
			return err
		}

		// Branch lock first, then the shift CAS: same order as order
		// completion, so the two cannot deadlock against each other.
		if _, err := lockBranch(tx, shift.BranchID); err != nil {
			return err
		}

		counted := round2(countedBalance)
		now := time.Now()

		if err := casShift(tx, shift, map[string]interface{}{
			"reconciled_at":      now,
			"reconciled_balance": counted,
			"last_activity_at":   now,
		}); err != nil {
			return err
		}

		shift.ReconciledAt = &now
		shift.ReconciledBalance = &counted
		shift.LastActivityAt = now

		if notes == "" {
			notes = "cash register reconciliation"
		}
		_, err = appendEntry(tx, cashAppend{
			TenantID:    user.TenantID,
			BranchID:    shift.BranchID,
			UserID:      user.ID,
			ShiftID:     &shift.ID,
			Type:        models.CashTxAdjustment,
			Amount:      decimal.Zero,
			Description: notes,
			ReferenceID: &shift.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "shift",
		EntityID: shift.ID,
		Action:   "reconcile",
		After:    shift,
	})
	return shift, nil
}

// Current returns the caller's open shift with its inactivity status, or
// NO_OPEN_SHIFT when every past shift is terminated.
func (s *ShiftService) Current(user *models.User) (*models.Shift, InactivityStatus, error) {
	shift, err := openShiftForUser(s.db, user.ID)
	if err != nil {
		return nil, InactivityStatus{}, err
	}
	if shift == nil {
		return nil, InactivityStatus{}, newError(CodeNoOpenShift, "no open shift for user %s", user.ID)
	}
	return shift, CheckInactivity(shift, time.Now()), nil
}

// Get returns a shift by id within the caller's tenant. Reads of closed
// shifts are idempotent: totals never change after termination.
func (s *ShiftService) Get(user *models.User, shiftID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	if err := s.db.First(&shift, "id = ? AND tenant_id = ?", shiftID, user.TenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newError(CodeNotFound, "shift %s not found", shiftID)
		}
		return nil, err
	}
	return &shift, nil
}
