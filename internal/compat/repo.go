package compat

import (
	"context"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// matchedItem is an inventory item row tagged with the source edge that
// produced it. One item can appear multiple times across sources.
type matchedItem struct {
	models.InventoryItem
	Source MatchType
}

// Repository exposes the two compatibility sources plus edge management.
type Repository interface {
	FindEquipment(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Equipment, error)
	DirectMatches(ctx context.Context, orgID uuid.UUID, equipmentIDs []uuid.UUID) ([]matchedItem, error)
	RuleMatches(ctx context.Context, orgID uuid.UUID, equipment []models.Equipment) ([]matchedItem, error)
	CreateLink(ctx context.Context, link *models.CompatibilityLink) error
	CreateRule(ctx context.Context, rule *models.CompatibilityRule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a compatibility repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindEquipment(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Equipment, error) {
	var rows []models.Equipment
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DirectMatches(ctx context.Context, orgID uuid.UUID, equipmentIDs []uuid.UUID) ([]matchedItem, error) {
	var rows []models.InventoryItem
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Joins("JOIN compatibility_links cl ON cl.inventory_item_id = inventory_items.id").
		Where("cl.organization_id = ?", orgID).
		Where("cl.equipment_id IN ?", equipmentIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return tagMatches(rows, MatchTypeDirect), nil
}

func (r *repository) RuleMatches(ctx context.Context, orgID uuid.UUID, equipment []models.Equipment) ([]matchedItem, error) {
	if len(equipment) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Joins("JOIN compatibility_rules cr ON cr.inventory_item_id = inventory_items.id").
		Where("cr.organization_id = ?", orgID)

	// One disjunct per equipment: manufacturer must match, model matches
	// when the rule names one and is a wildcard otherwise.
	match := r.db.Session(&gorm.Session{NewDB: true})
	for _, eq := range equipment {
		match = match.Or(
			r.db.Session(&gorm.Session{NewDB: true}).
				Where("cr.normalized_manufacturer = ?", eq.NormalizedManufacturer).
				Where("cr.normalized_model IS NULL OR cr.normalized_model = ?", eq.NormalizedModel),
		)
	}
	query = query.Where(match)

	var rows []models.InventoryItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return tagMatches(rows, MatchTypeRule), nil
}

func (r *repository) CreateLink(ctx context.Context, link *models.CompatibilityLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) CreateRule(ctx context.Context, rule *models.CompatibilityRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func tagMatches(rows []models.InventoryItem, source MatchType) []matchedItem {
	out := make([]matchedItem, len(rows))
	for i, row := range rows {
		out[i] = matchedItem{InventoryItem: row, Source: source}
	}
	return out
}
