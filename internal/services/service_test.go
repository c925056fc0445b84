package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/tillpoint/internal/database"
	"github.com/example/tillpoint/internal/models"
)

// testEnv wires the settlement services against an in-memory database with a
// seeded tenant, two branches, two cashiers, an admin and a stocked product.
type testEnv struct {
	db       *gorm.DB
	shifts   *ShiftService
	orders   *OrderService
	cash     *CashRegisterService
	stock    *StockLedger
	tenant   *models.Tenant
	branch   *models.Branch
	branch2  *models.Branch
	admin    *models.User
	cashierA *models.User
	cashierB *models.User
	coffee   *models.Product
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	tenant := &models.Tenant{
		Name:                  "Test Cafe",
		Currency:              "USD",
		DefaultTaxRate:        decimal.NewFromInt(14),
		TaxInclusiveDefault:   false,
		OverpaymentMultiplier: decimal.NewFromInt(2),
	}
	require.NoError(t, db.Create(tenant).Error)

	branch := &models.Branch{TenantID: tenant.ID, Name: "Downtown", Code: "DT", IsActive: true}
	require.NoError(t, db.Create(branch).Error)
	branch2 := &models.Branch{TenantID: tenant.ID, Name: "Airport", Code: "AP", IsActive: true}
	require.NoError(t, db.Create(branch2).Error)

	admin := &models.User{TenantID: tenant.ID, BranchID: &branch.ID, FirstName: "Ada", Email: "ada@test", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, db.Create(admin).Error)
	cashierA := &models.User{TenantID: tenant.ID, BranchID: &branch.ID, FirstName: "Alan", Email: "alan@test", Role: models.RoleCashier, IsActive: true}
	require.NoError(t, db.Create(cashierA).Error)
	cashierB := &models.User{TenantID: tenant.ID, BranchID: &branch.ID, FirstName: "Barbara", Email: "barbara@test", Role: models.RoleCashier, IsActive: true}
	require.NoError(t, db.Create(cashierB).Error)

	coffee := &models.Product{
		TenantID:   tenant.ID,
		SKU:        "COF-01",
		Name:       "Coffee Beans 1kg",
		Price:      decimal.NewFromInt(100),
		TrackStock: true,
		IsActive:   true,
	}
	require.NoError(t, db.Create(coffee).Error)

	env := &testEnv{
		db:       db,
		shifts:   NewShiftService(db, nil),
		orders:   NewOrderService(db, nil),
		cash:     NewCashRegisterService(db, nil),
		stock:    NewStockLedger(db, nil),
		tenant:   tenant,
		branch:   branch,
		branch2:  branch2,
		admin:    admin,
		cashierA: cashierA,
		cashierB: cashierB,
		coffee:   coffee,
	}

	_, err = env.stock.Adjust(admin, branch.ID, coffee.ID, decimal.NewFromInt(50), "initial stocktake")
	require.NoError(t, err)

	return env
}

// updateTenant persists tenant configuration changes mid-test.
func (e *testEnv) updateTenant(t *testing.T, updates map[string]interface{}) {
	t.Helper()
	require.NoError(t, e.db.Model(e.tenant).Updates(updates).Error)
	require.NoError(t, e.db.First(e.tenant, "id = ?", e.tenant.ID).Error)
}

// addProduct creates an extra catalog entry. The active flag is written with
// an explicit update because the column has a true default that would swallow
// a zero-valued insert.
func (e *testEnv) addProduct(t *testing.T, name string, price int64, active bool) *models.Product {
	t.Helper()
	p := &models.Product{
		TenantID:   e.tenant.ID,
		Name:       name,
		Price:      decimal.NewFromInt(price),
		TrackStock: true,
		IsActive:   true,
	}
	require.NoError(t, e.db.Create(p).Error)
	if !active {
		require.NoError(t, e.db.Model(p).Update("is_active", false).Error)
		p.IsActive = false
	}
	return p
}

// requireCode asserts that err is a service error with the given code.
func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	svcErr, ok := err.(*Error)
	require.True(t, ok, "expected *services.Error, got %T: %v", err, err)
	require.Equal(t, code, svcErr.Code)
}

// requireDec asserts decimal equality by value rather than representation.
func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

// openShift opens a shift for the user with the given float and fails the
// test on error.
func (e *testEnv) openShift(t *testing.T, user *models.User, opening string) *models.Shift {
	t.Helper()
	shift, err := e.shifts.Open(user, e.branch.ID, dec(opening))
	require.NoError(t, err)
	return shift
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
