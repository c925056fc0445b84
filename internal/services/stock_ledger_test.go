package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/utils"
)

func TestStockAdjust(t *testing.T) {
	env := newTestEnv(t)

	movement, err := env.stock.Adjust(env.admin, env.branch.ID, env.coffee.ID, dec("10"), "goods in")
	require.NoError(t, err)
	require.Equal(t, models.StockMovementAdjustment, movement.Type)
	requireDec(t, "10", movement.Quantity)
	requireDec(t, "50", movement.BalanceBefore)
	requireDec(t, "60", movement.BalanceAfter)
	require.EqualValues(t, 2, movement.Sequence)

	movement, err = env.stock.Adjust(env.admin, env.branch.ID, env.coffee.ID, dec("-3"), "breakage")
	require.NoError(t, err)
	requireDec(t, "57", movement.BalanceAfter)
	require.EqualValues(t, 3, movement.Sequence)

	env.requireStock(t, env.coffee.ID, "57")
}

func TestStockAdjustValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.stock.Adjust(env.admin, env.branch.ID, env.coffee.ID, dec("0"), "noop")
	requireCode(t, err, CodeValidation)

	_, err = env.stock.Adjust(env.admin, env.branch.ID, uuid.New(), dec("5"), "ghost")
	requireCode(t, err, CodeNotFound)
}

func TestStockNegativeBalanceRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.stock.Adjust(env.admin, env.branch.ID, env.coffee.ID, dec("-51"), "impossible")
	requireCode(t, err, CodeInsufficientStock)

	// The rejected movement left neither a chain entry nor a counter change.
	env.requireStock(t, env.coffee.ID, "50")
	var n int64
	require.NoError(t, env.db.Model(&models.StockMovement{}).
		Where("product_id = ?", env.coffee.ID).Count(&n).Error)
	require.EqualValues(t, 1, n)
}

func TestStockNegativeBalanceAllowedByTenant(t *testing.T) {
	env := newTestEnv(t)
	env.updateTenant(t, map[string]interface{}{"allow_negative_stock": true})

	movement, err := env.stock.Adjust(env.admin, env.branch.ID, env.coffee.ID, dec("-60"), "backordered")
	require.NoError(t, err)
	requireDec(t, "-10", movement.BalanceAfter)
	env.requireStock(t, env.coffee.ID, "-10")
}

func TestStockPerBranchChains(t *testing.T) {
	env := newTestEnv(t)

	// The second branch starts from zero and sequences independently.
	movement, err := env.stock.Adjust(env.admin, env.branch2.ID, env.coffee.ID, dec("20"), "initial stocktake")
	require.NoError(t, err)
	require.EqualValues(t, 1, movement.Sequence)
	requireDec(t, "0", movement.BalanceBefore)
	requireDec(t, "20", movement.BalanceAfter)

	qty, err := currentStock(env.db, env.coffee.ID, env.branch2.ID)
	require.NoError(t, err)
	requireDec(t, "20", qty)
	env.requireStock(t, env.coffee.ID, "50")
}

func TestStockListMovements(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.stock.Adjust(env.admin, env.branch.ID, env.coffee.ID, dec("5"), "goods in")
	require.NoError(t, err)
	_, err = env.stock.Adjust(env.admin, env.branch.ID, env.coffee.ID, dec("-2"), "samples")
	require.NoError(t, err)

	movements, total, err := env.stock.ListMovements(env.tenant.ID, env.branch.ID, env.coffee.ID, utils.Pagination{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, movements, 3)

	// Newest first with a continuous chain.
	for i := 0; i < len(movements)-1; i++ {
		newer, older := movements[i], movements[i+1]
		require.Equal(t, older.Sequence+1, newer.Sequence)
		requireDec(t, older.BalanceAfter.String(), newer.BalanceBefore)
	}
}
