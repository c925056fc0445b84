package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/tillpoint/internal/middleware"
	"github.com/example/tillpoint/internal/services"
	"github.com/example/tillpoint/internal/utils"
)

// ShiftHandler manages cashier session endpoints.
type ShiftHandler struct {
	shifts *services.ShiftService
}

// NewShiftHandler constructs a ShiftHandler.
func NewShiftHandler(shifts *services.ShiftService) *ShiftHandler {
	return &ShiftHandler{shifts: shifts}
}

type openShiftRequest struct {
	BranchID       string          `json:"branch_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Open starts a new shift for the caller.
func (h *ShiftHandler) Open(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req openShiftRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	branchID, err := resolveBranchID(req.BranchID, user.BranchID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, err.Error())
	}

	shift, err := h.shifts.Open(user, branchID, req.OpeningBalance)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "shift opened", shift)
}

type closeShiftRequest struct {
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Notes          string          `json:"notes"`
}

// Close terminates the caller's open shift.
func (h *ShiftHandler) Close(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req closeShiftRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	shift, err := h.shifts.Close(user, req.ClosingBalance, req.Notes)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "shift closed", shift)
}

type forceCloseRequest struct {
	Reason        string           `json:"reason"`
	ActualBalance *decimal.Decimal `json:"actual_balance"`
	Notes         string           `json:"notes"`
}

// ForceClose lets an admin terminate any shift in the tenant.
func (h *ShiftHandler) ForceClose(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	shiftID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid shift id")
	}

	var req forceCloseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	shift, err := h.shifts.ForceClose(user, shiftID, req.Reason, req.ActualBalance, req.Notes)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "shift force-closed", shift)
}

type handoverRequest struct {
	ToUserID       string          `json:"to_user_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Notes          string          `json:"notes"`
}

// Handover reassigns the caller's open shift to another cashier.
func (h *ShiftHandler) Handover(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	shiftID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid shift id")
	}

	var req handoverRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid target user id")
	}

	shift, err := h.shifts.Handover(user, shiftID, toUserID, req.CurrentBalance, req.Notes)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "shift handed over", shift)
}

type reconcileRequest struct {
	CountedBalance decimal.Decimal `json:"counted_balance"`
	Notes          string          `json:"notes"`
}

// Reconcile records counted drawer cash for the caller's open shift.
func (h *ShiftHandler) Reconcile(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req reconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	shift, err := h.shifts.Reconcile(user, req.CountedBalance, req.Notes)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "cash register reconciled", shift)
}

// Current returns the caller's open shift and its inactivity status.
func (h *ShiftHandler) Current(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	shift, inactivity, err := h.shifts.Current(user)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "current shift", fiber.Map{
		"shift":      shift,
		"inactivity": inactivity,
	})
}

// Get returns one shift by id.
func (h *ShiftHandler) Get(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	shiftID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid shift id")
	}

	shift, err := h.shifts.Get(user, shiftID)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "shift", shift)
}

// resolveBranchID prefers the explicit request value and falls back to the
// branch assigned to the user account.
func resolveBranchID(requested string, assigned *uuid.UUID) (uuid.UUID, error) {
	if requested != "" {
		return uuid.Parse(requested)
	}
	if assigned != nil {
		return *assigned, nil
	}
	return uuid.Nil, errors.New("branch_id is required")
}
