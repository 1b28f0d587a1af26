package compat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service answers "which inventory items fit this equipment?" by combining
// direct links with manufacturer/model pattern rules.
type Service interface {
	GetCompatibleItems(ctx context.Context, orgID uuid.UUID, equipmentIDs []uuid.UUID) ([]CompatibleItem, error)
	AddDirectLink(ctx context.Context, orgID, equipmentID, itemID uuid.UUID) error
	AddRule(ctx context.Context, orgID, userID uuid.UUID, input AddRuleInput) error
}

type service struct {
	repo Repository
}

// NewService builds the compatibility resolver.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("compatibility repository required")
	}
	return &service{repo: repo}, nil
}

// GetCompatibleItems unions both sources, dedupes by item id with the first
// occurrence winning (direct edges are gathered before rule edges), and
// orders the result: items matched by more than one edge first, then
// ascending default unit cost with null costs last, then name.
func (s *service) GetCompatibleItems(ctx context.Context, orgID uuid.UUID, equipmentIDs []uuid.UUID) ([]CompatibleItem, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}
	if len(equipmentIDs) == 0 {
		return []CompatibleItem{}, nil
	}

	equipment, err := s.repo.FindEquipment(ctx, orgID, equipmentIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup equipment")
	}
	if len(equipment) == 0 {
		return []CompatibleItem{}, nil
	}

	ids := make([]uuid.UUID, len(equipment))
	for i, eq := range equipment {
		ids[i] = eq.ID
	}

	direct, err := s.repo.DirectMatches(ctx, orgID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve direct links")
	}
	ruled, err := s.repo.RuleMatches(ctx, orgID, equipment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve pattern rules")
	}

	merged := append(direct, ruled...)
	edgeCount := map[uuid.UUID]int{}
	for _, match := range merged {
		edgeCount[match.ID]++
	}

	seen := map[uuid.UUID]struct{}{}
	items := make([]CompatibleItem, 0, len(merged))
	for _, match := range merged {
		if _, ok := seen[match.ID]; ok {
			continue
		}
		seen[match.ID] = struct{}{}
		items = append(items, CompatibleItem{
			ID:                match.ID,
			Name:              match.Name,
			SKU:               match.SKU,
			Location:          match.Location,
			QuantityOnHand:    match.QuantityOnHand,
			LowStockThreshold: match.LowStockThreshold,
			DefaultUnitCost:   match.DefaultUnitCost,
			ImageURL:          match.ImageURL,
			MatchType:         match.Source,
			HasAlternates:     edgeCount[match.ID] > 1,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.HasAlternates != b.HasAlternates {
			return a.HasAlternates
		}
		if a.DefaultUnitCost.Valid != b.DefaultUnitCost.Valid {
			return a.DefaultUnitCost.Valid
		}
		if a.DefaultUnitCost.Valid && b.DefaultUnitCost.Valid {
			if cmp := a.DefaultUnitCost.Decimal.Cmp(b.DefaultUnitCost.Decimal); cmp != 0 {
				return cmp < 0
			}
		}
		return a.Name < b.Name
	})

	return items, nil
}

// AddDirectLink records an exact equipment-to-item edge.
func (s *service) AddDirectLink(ctx context.Context, orgID, equipmentID, itemID uuid.UUID) error {
	if orgID == uuid.Nil || equipmentID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization, equipment, and item ids are required")
	}
	err := s.repo.CreateLink(ctx, &models.CompatibilityLink{
		EquipmentID:     equipmentID,
		InventoryItemID: itemID,
		OrganizationID:  orgID,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create compatibility link")
	}
	return nil
}

// AddRule records a pattern rule, normalizing manufacturer and model at
// write time so matching stays case and whitespace insensitive.
func (s *service) AddRule(ctx context.Context, orgID, userID uuid.UUID, input AddRuleInput) error {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization and user identities are required")
	}
	if input.InventoryItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory_item_id is required")
	}
	manufacturer := strings.TrimSpace(input.Manufacturer)
	if manufacturer == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "manufacturer is required")
	}

	rule := &models.CompatibilityRule{
		OrganizationID:         orgID,
		InventoryItemID:        input.InventoryItemID,
		Manufacturer:           manufacturer,
		NormalizedManufacturer: Normalize(manufacturer),
		CreatedBy:              userID,
	}
	if input.Model != nil {
		model := strings.TrimSpace(*input.Model)
		if model != "" {
			normalized := Normalize(model)
			rule.Model = &model
			rule.NormalizedModel = &normalized
		}
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create compatibility rule")
	}
	return nil
}

// Normalize lower-cases and trims a manufacturer or model for matching.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
