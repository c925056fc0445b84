package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/utils"
)

// CashRegisterService owns the append-only per-branch cash ledger. Every
// entry derives BalanceBefore from the latest committed entry, so the chain
// stays continuous even if a denormalized counter were to drift.
type CashRegisterService struct {
	db    *gorm.DB
	audit AuditLogger
}

// NewCashRegisterService constructs a CashRegisterService.
func NewCashRegisterService(db *gorm.DB, audit AuditLogger) *CashRegisterService {
	return &CashRegisterService{db: db, audit: audit}
}

// lockBranch serializes ledger appends for a branch. All appends for the same
// branch take this row lock first, so balance reads and writes never interleave.
func lockBranch(tx *gorm.DB, branchID uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	if err := withRowLock(tx).
		First(&branch, "id = ?", branchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newError(CodeNotFound, "branch %s not found", branchID)
		}
		return nil, err
	}
	return &branch, nil
}

// lastEntry returns the most recent ledger entry for a branch, or nil when
// the ledger is empty. Callers must hold the branch lock.
func lastEntry(tx *gorm.DB, branchID uuid.UUID) (*models.CashRegisterTransaction, error) {
	var entry models.CashRegisterTransaction
	err := tx.Where("branch_id = ?", branchID).
		Order("sequence desc").
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

type cashAppend struct {
	TenantID    uuid.UUID
	BranchID    uuid.UUID
	UserID      uuid.UUID
	ShiftID     *uuid.UUID
	Type        string
	Amount      decimal.Decimal // signed
	Description string
	ReferenceID *uuid.UUID
}

// appendEntry writes one chained ledger entry inside the caller's transaction.
// The caller must already hold the branch lock.
func appendEntry(tx *gorm.DB, p cashAppend) (*models.CashRegisterTransaction, error) {
	last, err := lastEntry(tx, p.BranchID)
	if err != nil {
		return nil, err
	}

	balanceBefore := decimal.Zero
	var sequence int64 = 1
	if last != nil {
		balanceBefore = last.BalanceAfter
		sequence = last.Sequence + 1
	}

	entry := models.CashRegisterTransaction{
		TenantID:      p.TenantID,
		BranchID:      p.BranchID,
		ShiftID:       p.ShiftID,
		UserID:        p.UserID,
		Sequence:      sequence,
		Type:          p.Type,
		Amount:        round2(p.Amount),
		BalanceBefore: balanceBefore,
		BalanceAfter:  round2(balanceBefore.Add(p.Amount)),
		Description:   p.Description,
		ReferenceID:   p.ReferenceID,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// CurrentBalance returns the ledger-derived drawer balance for a branch.
func (s *CashRegisterService) CurrentBalance(branchID uuid.UUID) (decimal.Decimal, error) {
	last, err := lastEntry(s.db, branchID)
	if err != nil {
		return decimal.Zero, err
	}
	if last == nil {
		return decimal.Zero, nil
	}
	return last.BalanceAfter, nil
}

// Deposit records a manual cash inflow for the caller's branch, linked to the
// caller's open shift when one exists.
func (s *CashRegisterService) Deposit(user *models.User, branchID uuid.UUID, amount decimal.Decimal, description string) (*models.CashRegisterTransaction, error) {
	if !amount.IsPositive() {
		return nil, newError(CodeValidation, "deposit amount must be positive")
	}
	return s.manualEntry(user, branchID, models.CashTxDeposit, amount, description)
}

// Withdraw records a manual cash outflow for the caller's branch.
func (s *CashRegisterService) Withdraw(user *models.User, branchID uuid.UUID, amount decimal.Decimal, description string) (*models.CashRegisterTransaction, error) {
	if !amount.IsPositive() {
		return nil, newError(CodeValidation, "withdrawal amount must be positive")
	}
	return s.manualEntry(user, branchID, models.CashTxWithdrawal, amount.Neg(), description)
}

func (s *CashRegisterService) manualEntry(user *models.User, branchID uuid.UUID, txType string, amount decimal.Decimal, description string) (*models.CashRegisterTransaction, error) {
	var entry *models.CashRegisterTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockBranch(tx, branchID); err != nil {
			return err
		}

		shift, err := openShiftForUser(tx, user.ID)
		if err != nil {
			return err
		}
		var shiftID *uuid.UUID
		if shift != nil {
			shiftID = &shift.ID
		}

		entry, err = appendEntry(tx, cashAppend{
			TenantID:    user.TenantID,
			BranchID:    branchID,
			UserID:      user.ID,
			ShiftID:     shiftID,
			Type:        txType,
			Amount:      amount,
			Description: description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "cash_register_transaction",
		EntityID: entry.ID,
		Action:   entry.Type,
		After:    entry,
	})
	return entry, nil
}

// Transfer moves cash between two branches as a pair of linked entries, a
// debit on the source and a credit on the destination, cross-referencing each
// other via TransferReferenceID. Branch locks are taken in a deterministic
// order so concurrent opposite transfers cannot deadlock.
func (s *CashRegisterService) Transfer(user *models.User, fromBranchID, toBranchID uuid.UUID, amount decimal.Decimal, description string) (*models.CashRegisterTransaction, *models.CashRegisterTransaction, error) {
	if !amount.IsPositive() {
		return nil, nil, newError(CodeValidation, "transfer amount must be positive")
	}
	if fromBranchID == toBranchID {
		return nil, nil, newError(CodeValidation, "cannot transfer to the same branch")
	}

	var out, in *models.CashRegisterTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		first, second := fromBranchID, toBranchID
		if strings.Compare(second.String(), first.String()) < 0 {
			first, second = second, first
		}
		if _, err := lockBranch(tx, first); err != nil {
			return err
		}
		if _, err := lockBranch(tx, second); err != nil {
			return err
		}

		var err error
		out, err = appendEntry(tx, cashAppend{
			TenantID:    user.TenantID,
			BranchID:    fromBranchID,
			UserID:      user.ID,
			Type:        models.CashTxTransferOut,
			Amount:      amount.Neg(),
			Description: description,
		})
		if err != nil {
			return err
		}

		in, err = appendEntry(tx, cashAppend{
			TenantID:    user.TenantID,
			BranchID:    toBranchID,
			UserID:      user.ID,
			Type:        models.CashTxTransferIn,
			Amount:      amount,
			Description: description,
		})
		if err != nil {
			return err
		}

		in.TransferReferenceID = &out.ID
		if err := tx.Model(in).Update("transfer_reference_id", out.ID).Error; err != nil {
			return err
		}
		out.TransferReferenceID = &in.ID
		return tx.Model(out).Update("transfer_reference_id", in.ID).Error
	})
	if err != nil {
		return nil, nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "cash_register_transaction",
		EntityID: out.ID,
		Action:   "transfer",
		After:    []*models.CashRegisterTransaction{out, in},
	})
	return out, in, nil
}

// RecordExpense posts an expense and its matching ledger entry in one
// transaction, tied to the caller's open shift.
func (s *CashRegisterService) RecordExpense(user *models.User, branchID uuid.UUID, amount decimal.Decimal, description string) (*models.Expense, error) {
	if !amount.IsPositive() {
		return nil, newError(CodeValidation, "expense amount must be positive")
	}
	if description == "" {
		return nil, newError(CodeValidation, "expense description is required")
	}

	var expense models.Expense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockBranch(tx, branchID); err != nil {
			return err
		}

		shift, err := openShiftForUser(tx, user.ID)
		if err != nil {
			return err
		}
		var shiftID *uuid.UUID
		if shift != nil {
			shiftID = &shift.ID
		}

		expense = models.Expense{
			TenantID:    user.TenantID,
			BranchID:    branchID,
			ShiftID:     shiftID,
			UserID:      user.ID,
			Amount:      round2(amount),
			Description: description,
			SpentAt:     time.Now(),
		}
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}

		_, err = appendEntry(tx, cashAppend{
			TenantID:    user.TenantID,
			BranchID:    branchID,
			UserID:      user.ID,
			ShiftID:     shiftID,
			Type:        models.CashTxExpense,
			Amount:      amount.Neg(),
			Description: description,
			ReferenceID: &expense.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	emitAudit(s.audit, AuditEntry{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Entity:   "expense",
		EntityID: expense.ID,
		Action:   "create",
		After:    expense,
	})
	return &expense, nil
}

// ListTransactions returns the branch ledger, newest first.
func (s *CashRegisterService) ListTransactions(tenantID, branchID uuid.UUID, pg utils.Pagination) ([]models.CashRegisterTransaction, int64, error) {
	query := s.db.Model(&models.CashRegisterTransaction{}).
		Where("tenant_id = ? AND branch_id = ?", tenantID, branchID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.CashRegisterTransaction
	if err := query.Order("sequence desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
