package services

import "fmt"

// Stable error codes returned across the service boundary.
const (
	CodeValidation = "VALIDATION"
	CodeNotFound   = "NOT_FOUND"

	CodeOrderEmpty            = "ORDER_EMPTY"
	CodeOrderAlreadyCompleted = "ORDER_ALREADY_COMPLETED"
	CodeOrderNotDraft         = "ORDER_NOT_DRAFT"
	CodeOrderNotCompleted     = "ORDER_NOT_COMPLETED"

	CodePaymentInsufficient     = "PAYMENT_INSUFFICIENT"
	CodePaymentOverpaymentLimit = "PAYMENT_OVERPAYMENT_LIMIT"
	CodePaymentInvalidMethod    = "PAYMENT_INVALID_METHOD"
	CodePaymentInvalidAmount    = "PAYMENT_INVALID_AMOUNT"

	CodeShiftUserHasOpenShift      = "SHIFT_USER_HAS_OPEN_SHIFT"
	CodeNoOpenShift                = "NO_OPEN_SHIFT"
	CodeShiftAlreadyClosed         = "SHIFT_ALREADY_CLOSED"
	CodeShiftBranchMismatch        = "SHIFT_BRANCH_MISMATCH"
	CodeShiftConcurrencyConflict   = "SHIFT_CONCURRENCY_CONFLICT"
	CodeShiftForceCloseReason      = "SHIFT_FORCE_CLOSE_REASON_REQUIRED"
	CodeShiftHandoverToSameUser    = "SHIFT_HANDOVER_TO_SAME_USER"
	CodeShiftCannotHandoverClosed  = "SHIFT_CANNOT_HANDOVER_CLOSED"
	CodeCashReconciliationRequired = "CASH_REGISTER_RECONCILIATION_REQUIRED"

	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeProductInactive      = "PRODUCT_INACTIVE"
	CodeRefundReasonRequired = "REFUND_REASON_REQUIRED"
	CodeRefundExceedsTotal   = "REFUND_EXCEEDS_TOTAL"
)

// Error is a typed domain error with a stable machine-readable code.
// Every expected failure crosses the service boundary as one of these;
// anything else is treated as an internal error by the HTTP layer.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the caller is expected to retry the operation.
// Only optimistic-concurrency conflicts qualify.
func (e *Error) Retryable() bool {
	return e.Code == CodeShiftConcurrencyConflict
}

func newError(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
