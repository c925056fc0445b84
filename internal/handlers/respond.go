package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/tillpoint/internal/services"
	"github.com/example/tillpoint/internal/utils"
)

// statusForCode maps stable service error codes onto HTTP statuses:
// validation 400, not-found 404, state and concurrency conflicts 409,
// business-rule violations 422.
var statusForCode = map[string]int{
	services.CodeValidation:            fiber.StatusBadRequest,
	services.CodePaymentInvalidAmount:  fiber.StatusBadRequest,
	services.CodePaymentInvalidMethod:  fiber.StatusBadRequest,
	services.CodeShiftForceCloseReason: fiber.StatusBadRequest,
	services.CodeRefundReasonRequired:  fiber.StatusBadRequest,

	services.CodeNotFound: fiber.StatusNotFound,

	services.CodeOrderAlreadyCompleted:     fiber.StatusConflict,
	services.CodeOrderNotDraft:             fiber.StatusConflict,
	services.CodeOrderNotCompleted:         fiber.StatusConflict,
	services.CodeShiftUserHasOpenShift:     fiber.StatusConflict,
	services.CodeNoOpenShift:               fiber.StatusConflict,
	services.CodeShiftAlreadyClosed:        fiber.StatusConflict,
	services.CodeShiftHandoverToSameUser:   fiber.StatusConflict,
	services.CodeShiftCannotHandoverClosed: fiber.StatusConflict,
	services.CodeShiftConcurrencyConflict:  fiber.StatusConflict,

	services.CodeOrderEmpty:                 fiber.StatusUnprocessableEntity,
	services.CodePaymentInsufficient:        fiber.StatusUnprocessableEntity,
	services.CodePaymentOverpaymentLimit:    fiber.StatusUnprocessableEntity,
	services.CodeInsufficientStock:          fiber.StatusUnprocessableEntity,
	services.CodeProductInactive:            fiber.StatusUnprocessableEntity,
	services.CodeRefundExceedsTotal:         fiber.StatusUnprocessableEntity,
	services.CodeCashReconciliationRequired: fiber.StatusUnprocessableEntity,
	services.CodeShiftBranchMismatch:        fiber.StatusUnprocessableEntity,
}

// renderError translates a service error into the response envelope. Errors
// without a stable code are logged and surfaced as opaque internal failures.
func renderError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status, ok := statusForCode[svcErr.Code]
		if !ok {
			status = fiber.StatusUnprocessableEntity
		}
		return utils.RespondError(c, status, svcErr.Code, svcErr.Message)
	}

	log.Printf("[HTTP] %s %s internal error: %v", c.Method(), c.Path(), err)
	return utils.RespondError(c, fiber.StatusInternalServerError, "INTERNAL", "internal server error")
}
