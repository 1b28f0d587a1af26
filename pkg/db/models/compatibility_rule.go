package models

import (
	"time"

	"github.com/google/uuid"
)

// CompatibilityRule is a pattern edge: a nil Model means "any model of this
// manufacturer". Normalized columns are lower-cased and trimmed at write time.
type CompatibilityRule struct {
	ID                     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID         uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	InventoryItemID        uuid.UUID `gorm:"column:inventory_item_id;type:uuid;not null;index"`
	Manufacturer           string    `gorm:"column:manufacturer;not null"`
	Model                  *string   `gorm:"column:model"`
	NormalizedManufacturer string    `gorm:"column:normalized_manufacturer;not null;index"`
	NormalizedModel        *string   `gorm:"column:normalized_model;index"`
	CreatedBy              uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
}
