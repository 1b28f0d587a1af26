package models

import (
	"time"

	"github.com/google/uuid"
)

// CompatibilityLink is a direct equipment-to-part edge.
type CompatibilityLink struct {
	EquipmentID     uuid.UUID `gorm:"column:equipment_id;type:uuid;primaryKey"`
	InventoryItemID uuid.UUID `gorm:"column:inventory_item_id;type:uuid;primaryKey"`
	OrganizationID  uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
