package costs

import (
	"context"
	"errors"
	"testing"

	"github.com/equipqr/equipqr-backend/internal/inventory"
	"github.com/equipqr/equipqr-backend/pkg/db/models"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubCostsRepo struct {
	costs      map[uuid.UUID]*models.WorkOrderCost
	workOrders map[uuid.UUID]*models.WorkOrder
}

func newStubCostsRepo() *stubCostsRepo {
	return &stubCostsRepo{
		costs:      map[uuid.UUID]*models.WorkOrderCost{},
		workOrders: map[uuid.UUID]*models.WorkOrder{},
	}
}

func (s *stubCostsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCostsRepo) Create(ctx context.Context, cost *models.WorkOrderCost) (*models.WorkOrderCost, error) {
	if cost.ID == uuid.Nil {
		cost.ID = uuid.New()
	}
	s.costs[cost.ID] = cost
	return cost, nil
}

func (s *stubCostsRepo) FindByID(ctx context.Context, orgID, costID uuid.UUID) (*models.WorkOrderCost, error) {
	cost, ok := s.costs[costID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	wo, ok := s.workOrders[cost.WorkOrderID]
	if !ok || wo.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *cost
	return &copied, nil
}

func (s *stubCostsRepo) UpdateFields(ctx context.Context, costID uuid.UUID, fields map[string]any) error {
	cost, ok := s.costs[costID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if qty, ok := fields["quantity"].(int); ok {
		cost.Quantity = qty
	}
	if desc, ok := fields["description"].(string); ok {
		cost.Description = desc
	}
	if price, ok := fields["unit_price_cents"].(int64); ok {
		cost.UnitPriceCents = price
	}
	return nil
}

func (s *stubCostsRepo) Delete(ctx context.Context, costID uuid.UUID) error {
	if _, ok := s.costs[costID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.costs, costID)
	return nil
}

func (s *stubCostsRepo) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]models.WorkOrderCost, error) {
	rows := []models.WorkOrderCost{}
	for _, cost := range s.costs {
		if cost.WorkOrderID == workOrderID {
			rows = append(rows, *cost)
		}
	}
	return rows, nil
}

func (s *stubCostsRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.WorkOrderCost, error) {
	rows := []models.WorkOrderCost{}
	for _, cost := range s.costs {
		if wo, ok := s.workOrders[cost.WorkOrderID]; ok && wo.OrganizationID == orgID {
			rows = append(rows, *cost)
		}
	}
	return rows, nil
}

func (s *stubCostsRepo) FindWorkOrder(ctx context.Context, orgID, workOrderID uuid.UUID) (*models.WorkOrder, error) {
	wo, ok := s.workOrders[workOrderID]
	if !ok || wo.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return wo, nil
}

func (s *stubCostsRepo) SummaryByUser(ctx context.Context, orgID uuid.UUID) ([]userSummaryRow, error) {
	return nil, nil
}

type stubAdjuster struct {
	calls []inventory.AdjustQuantityInput
	err   error
}

func (s *stubAdjuster) AdjustQuantity(ctx context.Context, orgID, userID uuid.UUID, input inventory.AdjustQuantityInput) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.calls = append(s.calls, input)
	return 0, nil
}

type stubProfiles struct {
	names map[uuid.UUID]string
}

func (s *stubProfiles) DisplayNames(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if s.names == nil {
		return map[uuid.UUID]string{}, nil
	}
	return s.names, nil
}

type stubMetrics struct {
	failures map[string]int
}

func (s *stubMetrics) IncCompensationFailure(operation string) {
	if s.failures == nil {
		s.failures = map[string]int{}
	}
	s.failures[operation]++
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("fatal")})
}

type fixture struct {
	repo     *stubCostsRepo
	adjuster *stubAdjuster
	metrics  *stubMetrics
	svc      Service
	orgID    uuid.UUID
	userID   uuid.UUID
	woID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubCostsRepo()
	adjuster := &stubAdjuster{}
	metrics := &stubMetrics{}
	svc, err := NewService(repo, adjuster, &stubProfiles{}, metrics, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	orgID := uuid.New()
	woID := uuid.New()
	repo.workOrders[woID] = &models.WorkOrder{ID: woID, OrganizationID: orgID}

	return &fixture{
		repo:     repo,
		adjuster: adjuster,
		metrics:  metrics,
		svc:      svc,
		orgID:    orgID,
		userID:   uuid.New(),
		woID:     woID,
	}
}

func (f *fixture) seedCost(t *testing.T, quantity int, itemID *uuid.UUID) uuid.UUID {
	t.Helper()
	cost := &models.WorkOrderCost{
		ID:              uuid.New(),
		WorkOrderID:     f.woID,
		Description:     "labor and parts",
		Quantity:        quantity,
		UnitPriceCents:  500,
		InventoryItemID: itemID,
		CreatedBy:       f.userID,
	}
	f.repo.costs[cost.ID] = cost
	return cost.ID
}

func TestUpdateCostDeltaSign(t *testing.T) {
	tests := []struct {
		name      string
		oldQty    int
		newQty    int
		wantDelta int
	}{
		{"decrease returns stock", 5, 3, 2},
		{"increase consumes stock", 5, 8, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			itemID := uuid.New()
			costID := f.seedCost(t, tt.oldQty, &itemID)

			result, err := f.svc.UpdateCostWithQuantityTracking(context.Background(), f.orgID, f.userID, costID, UpdateCostInput{Quantity: &tt.newQty})
			if err != nil {
				t.Fatalf("update cost: %v", err)
			}
			if result.InventoryAdjustment == nil {
				t.Fatal("expected an inventory adjustment")
			}
			if result.InventoryAdjustment.Delta != tt.wantDelta {
				t.Fatalf("expected delta %d, got %d", tt.wantDelta, result.InventoryAdjustment.Delta)
			}
			if !result.InventoryAdjustment.Applied {
				t.Fatal("expected adjustment to be applied")
			}
			if len(f.adjuster.calls) != 1 || f.adjuster.calls[0].Delta != tt.wantDelta {
				t.Fatalf("unexpected adjuster calls %+v", f.adjuster.calls)
			}
		})
	}
}

func TestUpdateCostSameQuantityNoAdjustment(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	costID := f.seedCost(t, 5, &itemID)

	same := 5
	result, err := f.svc.UpdateCostWithQuantityTracking(context.Background(), f.orgID, f.userID, costID, UpdateCostInput{Quantity: &same})
	if err != nil {
		t.Fatalf("update cost: %v", err)
	}
	if result.InventoryAdjustment != nil {
		t.Fatalf("equal quantities must not adjust inventory, got %+v", result.InventoryAdjustment)
	}
	if len(f.adjuster.calls) != 0 {
		t.Fatalf("adjuster should not have been called: %+v", f.adjuster.calls)
	}
}

func TestUpdateUnlinkedCostNeverTouchesInventory(t *testing.T) {
	f := newFixture(t)
	costID := f.seedCost(t, 5, nil)

	newQty := 1
	result, err := f.svc.UpdateCostWithQuantityTracking(context.Background(), f.orgID, f.userID, costID, UpdateCostInput{Quantity: &newQty})
	if err != nil {
		t.Fatalf("update cost: %v", err)
	}
	if result.InventoryAdjustment != nil {
		t.Fatal("unlinked cost must never produce an adjustment")
	}
	if len(f.adjuster.calls) != 0 {
		t.Fatalf("adjuster should not have been called: %+v", f.adjuster.calls)
	}
}

func TestUpdateCostCompensationFailureIsObservable(t *testing.T) {
	f := newFixture(t)
	f.adjuster.err = errors.New("inventory unavailable")
	itemID := uuid.New()
	costID := f.seedCost(t, 5, &itemID)

	newQty := 2
	result, err := f.svc.UpdateCostWithQuantityTracking(context.Background(), f.orgID, f.userID, costID, UpdateCostInput{Quantity: &newQty})
	if err != nil {
		t.Fatalf("cost update must not fail when compensation fails: %v", err)
	}
	if result.InventoryAdjustment == nil || result.InventoryAdjustment.Applied {
		t.Fatalf("expected unapplied adjustment, got %+v", result.InventoryAdjustment)
	}
	if f.metrics.failures["update_cost"] != 1 {
		t.Fatalf("expected compensation failure metric, got %+v", f.metrics.failures)
	}
	if got := f.repo.costs[costID].Quantity; got != 2 {
		t.Fatalf("cost update should stand, quantity=%d", got)
	}
}

func TestDeleteCostRestoresInventory(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	costID := f.seedCost(t, 4, &itemID)

	restoration, err := f.svc.DeleteCostWithInventoryInfo(context.Background(), f.orgID, f.userID, costID)
	if err != nil {
		t.Fatalf("delete cost: %v", err)
	}
	if restoration == nil || restoration.Delta != 4 || !restoration.Applied {
		t.Fatalf("expected applied restoration of 4, got %+v", restoration)
	}
	if _, ok := f.repo.costs[costID]; ok {
		t.Fatal("cost row should be gone")
	}
}

func TestDeleteUnlinkedCostReturnsNil(t *testing.T) {
	f := newFixture(t)
	costID := f.seedCost(t, 4, nil)

	restoration, err := f.svc.DeleteCostWithInventoryInfo(context.Background(), f.orgID, f.userID, costID)
	if err != nil {
		t.Fatalf("delete cost: %v", err)
	}
	if restoration != nil {
		t.Fatalf("unlinked cost must return nil restoration, got %+v", restoration)
	}
}

func TestGetAllCostsForeignWorkOrderReturnsEmpty(t *testing.T) {
	f := newFixture(t)
	f.seedCost(t, 1, nil)

	foreignWO := uuid.New()
	f.repo.workOrders[foreignWO] = &models.WorkOrder{ID: foreignWO, OrganizationID: uuid.New()}

	rows, err := f.svc.GetAllCostsWithCreators(context.Background(), f.orgID, &foreignWO)
	if err != nil {
		t.Fatalf("list costs: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result for foreign work order, got %d rows", len(rows))
	}
}

func TestGetAllCostsUnknownCreatorFallback(t *testing.T) {
	f := newFixture(t)
	f.seedCost(t, 1, nil)

	rows, err := f.svc.GetAllCostsWithCreators(context.Background(), f.orgID, &f.woID)
	if err != nil {
		t.Fatalf("list costs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].CreatorName != "Unknown" {
		t.Fatalf("expected Unknown fallback, got %q", rows[0].CreatorName)
	}
}

func TestCreateCostValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateCost(context.Background(), f.orgID, f.userID, CreateCostInput{
		WorkOrderID: f.woID,
		Description: "   ",
		Quantity:    1,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = f.svc.CreateCost(context.Background(), f.orgID, f.userID, CreateCostInput{
		WorkOrderID: uuid.New(),
		Description: "parts",
		Quantity:    1,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCreateLinkedCostDrawsStock(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()

	result, err := f.svc.CreateCost(context.Background(), f.orgID, f.userID, CreateCostInput{
		WorkOrderID:     f.woID,
		Description:     "replacement filter",
		Quantity:        3,
		UnitPriceCents:  1200,
		InventoryItemID: &itemID,
	})
	if err != nil {
		t.Fatalf("create cost: %v", err)
	}
	if result.InventoryAdjustment == nil || result.InventoryAdjustment.Delta != -3 {
		t.Fatalf("expected draw of 3 units, got %+v", result.InventoryAdjustment)
	}
	if result.Cost.TotalPriceCents != 3600 {
		t.Fatalf("expected effective total 3600, got %d", result.Cost.TotalPriceCents)
	}
}
