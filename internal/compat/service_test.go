package compat

import (
	"context"
	"testing"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubCompatRepo struct {
	equipment []models.Equipment
	direct    []matchedItem
	ruled     []matchedItem

	findEquipmentCalls int
}

func (s *stubCompatRepo) FindEquipment(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Equipment, error) {
	s.findEquipmentCalls++
	return s.equipment, nil
}

func (s *stubCompatRepo) DirectMatches(ctx context.Context, orgID uuid.UUID, equipmentIDs []uuid.UUID) ([]matchedItem, error) {
	return s.direct, nil
}

func (s *stubCompatRepo) RuleMatches(ctx context.Context, orgID uuid.UUID, equipment []models.Equipment) ([]matchedItem, error) {
	return s.ruled, nil
}

func (s *stubCompatRepo) CreateLink(ctx context.Context, link *models.CompatibilityLink) error {
	return nil
}

func (s *stubCompatRepo) CreateRule(ctx context.Context, rule *models.CompatibilityRule) error {
	return nil
}

func item(name string, cost *string) models.InventoryItem {
	row := models.InventoryItem{ID: uuid.New(), Name: name}
	if cost != nil {
		row.DefaultUnitCost = decimal.NewNullDecimal(decimal.RequireFromString(*cost))
	}
	return row
}

func str(s string) *string { return &s }

func TestGetCompatibleItemsEmptyInputShortCircuits(t *testing.T) {
	repo := &stubCompatRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	items, err := svc.GetCompatibleItems(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %d", len(items))
	}
	if repo.findEquipmentCalls != 0 {
		t.Fatal("empty input must not hit the repository")
	}
}

func TestGetCompatibleItemsDedupes(t *testing.T) {
	shared := item("Shared Part", nil)
	repo := &stubCompatRepo{
		equipment: []models.Equipment{{ID: uuid.New()}},
		direct:    []matchedItem{{InventoryItem: shared, Source: MatchTypeDirect}},
		ruled:     []matchedItem{{InventoryItem: shared, Source: MatchTypeRule}},
	}
	svc, _ := NewService(repo)

	items, err := svc.GetCompatibleItems(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly one entry after dedup, got %d", len(items))
	}
	if items[0].MatchType != MatchTypeDirect {
		t.Fatalf("first occurrence (direct) should win, got %s", items[0].MatchType)
	}
	if !items[0].HasAlternates {
		t.Fatal("item matched by two edges should have alternates")
	}
}

func TestGetCompatibleItemsOrdering(t *testing.T) {
	multi := item("Multi Source", str("50.00"))
	cheap := item("Cheap", str("1.25"))
	pricey := item("Pricey", str("99.99"))
	noCost := item("No Cost", nil)

	repo := &stubCompatRepo{
		equipment: []models.Equipment{{ID: uuid.New()}},
		direct: []matchedItem{
			{InventoryItem: multi, Source: MatchTypeDirect},
			{InventoryItem: noCost, Source: MatchTypeDirect},
		},
		ruled: []matchedItem{
			{InventoryItem: multi, Source: MatchTypeRule},
			{InventoryItem: pricey, Source: MatchTypeRule},
			{InventoryItem: cheap, Source: MatchTypeRule},
		},
	}
	svc, _ := NewService(repo)

	items, err := svc.GetCompatibleItems(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.Name
	}
	want := []string{"Multi Source", "Cheap", "Pricey", "No Cost"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v, want %v", i, got, want)
		}
	}

	// Alternates strictly precede non-alternates.
	sawNonAlternate := false
	for _, it := range items {
		if !it.HasAlternates {
			sawNonAlternate = true
		} else if sawNonAlternate {
			t.Fatal("alternate item found after non-alternate items")
		}
	}
}

func TestGetCompatibleItemsUnknownEquipmentReturnsEmpty(t *testing.T) {
	repo := &stubCompatRepo{}
	svc, _ := NewService(repo)

	items, err := svc.GetCompatibleItems(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %d", len(items))
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  John Deere "); got != "john deere" {
		t.Fatalf("unexpected normalization %q", got)
	}
}
