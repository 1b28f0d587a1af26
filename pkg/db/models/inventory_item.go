package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a stocked part tracked by the ledger.
type InventoryItem struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID    uuid.UUID           `gorm:"column:organization_id;type:uuid;not null;index"`
	Name              string              `gorm:"column:name;not null"`
	SKU               *string             `gorm:"column:sku"`
	ExternalID        *string             `gorm:"column:external_id"`
	Description       *string             `gorm:"column:description"`
	Location          *string             `gorm:"column:location"`
	QuantityOnHand    int                 `gorm:"column:quantity_on_hand;not null;default:0"`
	LowStockThreshold int                 `gorm:"column:low_stock_threshold;not null;default:0"`
	DefaultUnitCost   decimal.NullDecimal `gorm:"column:default_unit_cost;type:numeric(12,2)"`
	ImageURL          *string             `gorm:"column:image_url"`
	CreatedBy         uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLowStock derives the low-stock flag. Strict less-than; never persisted.
func (i InventoryItem) IsLowStock() bool {
	return i.QuantityOnHand < i.LowStockThreshold
}
