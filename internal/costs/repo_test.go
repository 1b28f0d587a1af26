package costs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCostsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS work_orders (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  equipment_id TEXT,
  title TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'submitted',
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS work_order_costs (
  id TEXT PRIMARY KEY,
  work_order_id TEXT NOT NULL,
  description TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  unit_price_cents INTEGER NOT NULL DEFAULT 0,
  total_price_cents INTEGER,
  inventory_item_id TEXT,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM work_order_costs")
		db.Exec("DELETE FROM work_orders")
	})
	return db
}

func seedWorkOrder(t *testing.T, db *gorm.DB, orgID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO work_orders (id, organization_id, title, created_by) VALUES (?, ?, ?, ?)",
		id, orgID, "pump overhaul", uuid.New(),
	).Error)
	return id
}

func seedCostRow(t *testing.T, db *gorm.DB, woID, userID uuid.UUID, qty int, unitCents int64, totalCents *int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO work_order_costs (id, work_order_id, description, quantity, unit_price_cents, total_price_cents, created_by) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, woID, "line item", qty, unitCents, totalCents, userID,
	).Error)
	return id
}

func TestFindByIDScopedThroughWorkOrder(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	woID := seedWorkOrder(t, db, orgID)
	costID := seedCostRow(t, db, woID, uuid.New(), 2, 100, nil)

	row, err := repo.FindByID(ctx, orgID, costID)
	require.NoError(t, err)
	assert.Equal(t, costID, row.ID)

	_, err = repo.FindByID(ctx, uuid.New(), costID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSummaryByUserUsesEffectiveTotals(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	woID := seedWorkOrder(t, db, orgID)
	alice := uuid.New()
	bob := uuid.New()

	explicit := int64(9000)
	seedCostRow(t, db, woID, alice, 3, 100, &explicit)
	seedCostRow(t, db, woID, alice, 4, 250, nil)
	seedCostRow(t, db, woID, bob, 2, 50, nil)

	otherWO := seedWorkOrder(t, db, uuid.New())
	seedCostRow(t, db, otherWO, alice, 100, 100, nil)

	rows, err := repo.SummaryByUser(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byUser := map[uuid.UUID]userSummaryRow{}
	for _, row := range rows {
		byUser[row.CreatedBy] = row
	}
	// 9000 explicit + 4*250 fallback
	assert.EqualValues(t, 10000, byUser[alice].TotalCents)
	assert.EqualValues(t, 2, byUser[alice].CostCount)
	assert.EqualValues(t, 100, byUser[bob].TotalCents)
}

func TestListByOrganizationExcludesForeignRows(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	woID := seedWorkOrder(t, db, orgID)
	seedCostRow(t, db, woID, uuid.New(), 1, 100, nil)

	foreignWO := seedWorkOrder(t, db, uuid.New())
	seedCostRow(t, db, foreignWO, uuid.New(), 1, 100, nil)

	rows, err := repo.ListByOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
