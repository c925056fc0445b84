package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/tillpoint/internal/middleware"
	"github.com/example/tillpoint/internal/services"
	"github.com/example/tillpoint/internal/utils"
)

// CashRegisterHandler manages the branch cash ledger endpoints.
type CashRegisterHandler struct {
	cash *services.CashRegisterService
}

// NewCashRegisterHandler constructs a CashRegisterHandler.
func NewCashRegisterHandler(cash *services.CashRegisterService) *CashRegisterHandler {
	return &CashRegisterHandler{cash: cash}
}

type cashMovementRequest struct {
	BranchID    string          `json:"branch_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Deposit records a manual cash inflow.
func (h *CashRegisterHandler) Deposit(c *fiber.Ctx) error {
	return h.manual(c, true)
}

// Withdraw records a manual cash outflow.
func (h *CashRegisterHandler) Withdraw(c *fiber.Ctx) error {
	return h.manual(c, false)
}

func (h *CashRegisterHandler) manual(c *fiber.Ctx, deposit bool) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req cashMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	branchID, err := resolveBranchID(req.BranchID, user.BranchID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, err.Error())
	}

	var entry interface{}
	if deposit {
		entry, err = h.cash.Deposit(user, branchID, req.Amount, req.Description)
	} else {
		entry, err = h.cash.Withdraw(user, branchID, req.Amount, req.Description)
	}
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "ledger entry recorded", entry)
}

type transferRequest struct {
	FromBranchID string          `json:"from_branch_id"`
	ToBranchID   string          `json:"to_branch_id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
}

// Transfer moves cash between branches as two linked ledger entries.
func (h *CashRegisterHandler) Transfer(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	fromID, err := resolveBranchID(req.FromBranchID, user.BranchID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, err.Error())
	}
	toID, err := uuid.Parse(req.ToBranchID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid to_branch_id")
	}

	out, in, err := h.cash.Transfer(user, fromID, toID, req.Amount, req.Description)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "transfer recorded", fiber.Map{
		"debit":  out,
		"credit": in,
	})
}

type expenseRequest struct {
	BranchID    string          `json:"branch_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Expense posts a cash expense against the caller's open shift.
func (h *CashRegisterHandler) Expense(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req expenseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	branchID, err := resolveBranchID(req.BranchID, user.BranchID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, err.Error())
	}

	expense, err := h.cash.RecordExpense(user, branchID, req.Amount, req.Description)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "expense recorded", expense)
}

// ListTransactions returns the branch cash ledger, newest first.
func (h *CashRegisterHandler) ListTransactions(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	branchID, err := resolveBranchID(c.Query("branch_id"), user.BranchID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, err.Error())
	}

	pg := utils.ParsePagination(c)
	entries, total, err := h.cash.ListTransactions(user.TenantID, branchID, pg)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "cash register transactions",
		"data":    entries,
		"errors":  []utils.APIError{},
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Balance returns the ledger-derived drawer balance for a branch.
func (h *CashRegisterHandler) Balance(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	branchID, err := resolveBranchID(c.Query("branch_id"), user.BranchID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, err.Error())
	}

	balance, err := h.cash.CurrentBalance(branchID)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "cash register balance", fiber.Map{
		"branch_id": branchID,
		"balance":   balance,
	})
}
