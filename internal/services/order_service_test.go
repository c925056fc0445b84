package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/utils"
)

func (e *testEnv) requireStock(t *testing.T, productID uuid.UUID, want string) {
	t.Helper()
	qty, err := currentStock(e.db, productID, e.branch.ID)
	require.NoError(t, err)
	requireDec(t, want, qty)
}

func (e *testEnv) ledgerCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.CashRegisterTransaction{}).
		Where("branch_id = ?", e.branch.ID).Count(&n).Error)
	return n
}

func TestOrderCreateTotals(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "takeaway")
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusDraft, order.Status)
	require.Equal(t, "USD", order.Currency)
	require.Len(t, order.Items, 1)
	requireDec(t, "100", order.Subtotal)
	requireDec(t, "14", order.TaxAmount)
	requireDec(t, "114", order.Total)
	requireDec(t, "114", order.AmountDue)
	requireDec(t, "0", order.AmountPaid)

	item := order.Items[0]
	require.Equal(t, env.coffee.Name, item.ProductName)
	requireDec(t, "100", item.UnitPrice)
	requireDec(t, "14", item.TaxAmount)
	requireDec(t, "114", item.LineTotal)

	// Creating the draft moves nothing yet.
	env.requireStock(t, env.coffee.ID, "50")
}

func TestOrderCreateRequiresOpenShift(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	requireCode(t, err, CodeNoOpenShift)
}

func TestOrderCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	_, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("0")},
	}, "")
	requireCode(t, err, CodeValidation)

	_, err = env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1"), Discount: dec("-5")},
	}, "")
	requireCode(t, err, CodeValidation)

	_, err = env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: uuid.New(), Quantity: dec("1")},
	}, "")
	requireCode(t, err, CodeNotFound)

	inactive := env.addProduct(t, "Discontinued Mug", 25, false)
	_, err = env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: inactive.ID, Quantity: dec("1")},
	}, "")
	requireCode(t, err, CodeProductInactive)

	_, err = env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("51")},
	}, "")
	requireCode(t, err, CodeInsufficientStock)
}

func TestOrderAddRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	order, err = env.orders.AddItem(env.cashierA, order.ID, ItemInput{
		ProductID: env.coffee.ID, Quantity: dec("2"),
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	requireDec(t, "300", order.Subtotal)
	requireDec(t, "342", order.Total)

	order, err = env.orders.RemoveItem(env.cashierA, order.ID, order.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	requireDec(t, "200", order.Subtotal)
	requireDec(t, "228", order.Total)

	_, err = env.orders.RemoveItem(env.cashierA, order.ID, uuid.New())
	requireCode(t, err, CodeNotFound)
}

func TestOrderCompleteEmptyOrder(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, nil, "")
	require.NoError(t, err)

	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("10")},
	})
	requireCode(t, err, CodeOrderEmpty)
}

func TestOrderCompleteCash(t *testing.T) {
	env := newTestEnv(t)
	shift := env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("2")},
	}, "")
	require.NoError(t, err)
	requireDec(t, "228", order.Total)

	completed, err := env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("230")},
	})
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusCompleted, completed.Status)
	requireDec(t, "230", completed.AmountPaid)
	requireDec(t, "2", completed.ChangeAmount)
	requireDec(t, "-2", completed.AmountDue)
	require.NotNil(t, completed.CompletedAt)
	require.Len(t, completed.Payments, 1)

	// Stock left the shelf.
	env.requireStock(t, env.coffee.ID, "48")

	var movement models.StockMovement
	require.NoError(t, env.db.Where("product_id = ? AND type = ?", env.coffee.ID, models.StockMovementSale).First(&movement).Error)
	requireDec(t, "-2", movement.Quantity)
	requireDec(t, "50", movement.BalanceBefore)
	requireDec(t, "48", movement.BalanceAfter)

	// The gross cash tendered entered the drawer ledger.
	var entry models.CashRegisterTransaction
	require.NoError(t, env.db.Where("branch_id = ? AND type = ?", env.branch.ID, models.CashTxSale).First(&entry).Error)
	requireDec(t, "230", entry.Amount)
	requireDec(t, "730", entry.BalanceAfter)

	// Shift totals follow.
	fresh, err := env.shifts.Get(env.cashierA, shift.ID)
	require.NoError(t, err)
	requireDec(t, "230", fresh.TotalCash)
	requireDec(t, "730", fresh.ExpectedBalance)
	require.Equal(t, 1, fresh.TotalOrders)

	// A settled order cannot settle twice.
	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("228")},
	})
	requireCode(t, err, CodeOrderAlreadyCompleted)
}

func TestOrderCompleteCardOnly(t *testing.T) {
	env := newTestEnv(t)
	shift := env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	before := env.ledgerCount(t)

	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCard, Amount: dec("114"), Reference: "AUTH-1234"},
	})
	require.NoError(t, err)

	// Card money never enters the drawer: no ledger entry, expected balance
	// unchanged.
	require.Equal(t, before, env.ledgerCount(t))

	fresh, err := env.shifts.Get(env.cashierA, shift.ID)
	require.NoError(t, err)
	requireDec(t, "0", fresh.TotalCash)
	requireDec(t, "114", fresh.TotalCard)
	requireDec(t, "500", fresh.ExpectedBalance)
}

func TestOrderCompleteMixedCaseMethod(t *testing.T) {
	env := newTestEnv(t)
	shift := env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	// A till that capitalizes the method must still book the money as cash:
	// accepted, split into the cash bucket and written to the drawer ledger.
	completed, err := env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: "Cash", Amount: dec("120")},
	})
	require.NoError(t, err)

	require.Len(t, completed.Payments, 1)
	require.Equal(t, models.PaymentMethodCash, completed.Payments[0].Method)

	var entry models.CashRegisterTransaction
	require.NoError(t, env.db.Where("branch_id = ? AND type = ?", env.branch.ID, models.CashTxSale).First(&entry).Error)
	requireDec(t, "120", entry.Amount)

	fresh, err := env.shifts.Get(env.cashierA, shift.ID)
	require.NoError(t, err)
	requireDec(t, "120", fresh.TotalCash)
	requireDec(t, "0", fresh.TotalCard)
	requireDec(t, "620", fresh.ExpectedBalance)
}

func TestOrderSettleShiftBranchMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	// A cashier whose open shift sits at another branch cannot settle the
	// order; the money would land in one branch's ledger and the other's
	// shift totals.
	_, err = env.shifts.Open(env.cashierB, env.branch2.ID, dec("100"))
	require.NoError(t, err)

	before := env.ledgerCount(t)
	_, err = env.orders.Complete(env.cashierB, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("114")},
	})
	requireCode(t, err, CodeShiftBranchMismatch)
	require.Equal(t, before, env.ledgerCount(t))
	env.requireStock(t, env.coffee.ID, "50")

	// Same rule for refunds once the order is settled at its own branch.
	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("114")},
	})
	require.NoError(t, err)

	_, _, err = env.orders.Refund(env.cashierB, order.ID, RefundInput{Reason: "cold"})
	requireCode(t, err, CodeShiftBranchMismatch)
}

func TestOrderNumbersUnique(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		order, err := env.orders.Create(env.cashierA, []ItemInput{
			{ProductID: env.coffee.ID, Quantity: dec("1")},
		}, "")
		require.NoError(t, err)
		require.NotEmpty(t, order.OrderNumber)
		require.False(t, seen[order.OrderNumber])
		seen[order.OrderNumber] = true
	}
}

func TestOrderCompleteOverpaymentRejected(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("5000")},
	})
	requireCode(t, err, CodePaymentOverpaymentLimit)

	got, err := env.orders.Get(env.cashierA, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusDraft, got.Status)
}

func TestOrderCompleteInactiveProductNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	shift := env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	// The product goes inactive between building the order and settling it.
	require.NoError(t, env.db.Model(&models.Product{}).Where("id = ?", env.coffee.ID).
		Update("is_active", false).Error)

	ledgerBefore := env.ledgerCount(t)

	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("114")},
	})
	requireCode(t, err, CodeProductInactive)

	// The whole settlement rolled back: no stock movement, no ledger entry,
	// no payment, no shift change, order still draft.
	env.requireStock(t, env.coffee.ID, "50")
	require.Equal(t, ledgerBefore, env.ledgerCount(t))

	var payments int64
	require.NoError(t, env.db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&payments).Error)
	require.Zero(t, payments)

	fresh, err := env.shifts.Get(env.cashierA, shift.ID)
	require.NoError(t, err)
	requireDec(t, "0", fresh.TotalCash)
	require.Equal(t, 0, fresh.TotalOrders)

	got, err := env.orders.Get(env.cashierA, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusDraft, got.Status)
}

func TestOrderCancel(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	cancelled, err := env.orders.Cancel(env.cashierA, order.ID, "customer walked out")
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.Equal(t, "customer walked out", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	// Cancellation has no ledger effects and is terminal.
	env.requireStock(t, env.coffee.ID, "50")

	_, err = env.orders.Cancel(env.cashierA, order.ID, "again")
	requireCode(t, err, CodeOrderNotDraft)

	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("114")},
	})
	requireCode(t, err, CodeOrderNotDraft)
}

func TestOrderRefundFull(t *testing.T) {
	env := newTestEnv(t)
	shift := env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("2")},
	}, "")
	require.NoError(t, err)
	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("228")},
	})
	require.NoError(t, err)
	env.requireStock(t, env.coffee.ID, "48")

	refunded, log, err := env.orders.Refund(env.cashierA, order.ID, RefundInput{
		Reason: "wrong grind",
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusRefunded, refunded.Status)
	requireDec(t, "228", refunded.RefundedAmount)
	requireDec(t, "228", log.Amount)
	require.Equal(t, "wrong grind", log.Reason)
	require.NotEmpty(t, log.StockDeltas)

	// Stock came back and the cash left the drawer.
	env.requireStock(t, env.coffee.ID, "50")

	var entry models.CashRegisterTransaction
	require.NoError(t, env.db.Where("branch_id = ? AND type = ?", env.branch.ID, models.CashTxRefund).First(&entry).Error)
	requireDec(t, "-228", entry.Amount)

	fresh, err := env.shifts.Get(env.cashierA, shift.ID)
	require.NoError(t, err)
	requireDec(t, "0", fresh.TotalCash)
	requireDec(t, "500", fresh.ExpectedBalance)

	// Nothing left to refund.
	_, _, err = env.orders.Refund(env.cashierA, order.ID, RefundInput{Reason: "again"})
	requireCode(t, err, CodeOrderNotCompleted)
}

func TestOrderRefundPartialAmountOnly(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("2")},
	}, "")
	require.NoError(t, err)
	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("228")},
	})
	require.NoError(t, err)

	amount := dec("50")
	refunded, log, err := env.orders.Refund(env.cashierA, order.ID, RefundInput{
		Amount: &amount,
		Reason: "goodwill discount",
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPartiallyRefunded, refunded.Status)
	requireDec(t, "50", refunded.RefundedAmount)
	require.Equal(t, "[]", log.StockDeltas)

	// Money moved, goods did not.
	env.requireStock(t, env.coffee.ID, "48")

	// The remainder is still refundable and closes the order out.
	refunded, _, err = env.orders.Refund(env.cashierA, order.ID, RefundInput{Reason: "gave up"})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusRefunded, refunded.Status)
	requireDec(t, "228", refunded.RefundedAmount)
}

func TestOrderRefundExplicitItems(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("3")},
	}, "")
	require.NoError(t, err)
	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("342")},
	})
	require.NoError(t, err)
	env.requireStock(t, env.coffee.ID, "47")

	amount := dec("114")
	_, _, err = env.orders.Refund(env.cashierA, order.ID, RefundInput{
		Amount: &amount,
		Reason: "one bag damaged",
		Items:  []RefundItemInput{{ItemID: order.Items[0].ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)
	env.requireStock(t, env.coffee.ID, "48")

	// A quantity beyond what was sold is rejected.
	_, _, err = env.orders.Refund(env.cashierA, order.ID, RefundInput{
		Amount: &amount,
		Reason: "too many",
		Items:  []RefundItemInput{{ItemID: order.Items[0].ID, Quantity: dec("5")}},
	})
	requireCode(t, err, CodeValidation)
}

func TestOrderRefundRules(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	order, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)

	_, _, err = env.orders.Refund(env.cashierA, order.ID, RefundInput{})
	requireCode(t, err, CodeRefundReasonRequired)

	// Only completed orders refund.
	_, _, err = env.orders.Refund(env.cashierA, order.ID, RefundInput{Reason: "not yet sold"})
	requireCode(t, err, CodeOrderNotCompleted)

	_, err = env.orders.Complete(env.cashierA, order.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("114")},
	})
	require.NoError(t, err)

	over := dec("200")
	_, _, err = env.orders.Refund(env.cashierA, order.ID, RefundInput{
		Amount: &over,
		Reason: "too much",
	})
	requireCode(t, err, CodeRefundExceedsTotal)
}

func TestOrderListAndGet(t *testing.T) {
	env := newTestEnv(t)
	env.openShift(t, env.cashierA, "500")

	first, err := env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("1")},
	}, "")
	require.NoError(t, err)
	_, err = env.orders.Create(env.cashierA, []ItemInput{
		{ProductID: env.coffee.ID, Quantity: dec("2")},
	}, "")
	require.NoError(t, err)

	orders, total, err := env.orders.List(env.cashierA, "", utils.Pagination{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, orders, 2)

	_, err = env.orders.Complete(env.cashierA, first.ID, []PaymentInput{
		{Method: models.PaymentMethodCash, Amount: dec("114")},
	})
	require.NoError(t, err)

	orders, total, err = env.orders.List(env.cashierA, models.OrderStatusCompleted, utils.Pagination{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.ID, orders[0].ID)

	got, err := env.orders.Get(env.cashierA, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Len(t, got.Payments, 1)

	_, err = env.orders.Get(env.cashierA, uuid.New())
	requireCode(t, err, CodeNotFound)
}
