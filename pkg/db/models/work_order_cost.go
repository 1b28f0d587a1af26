package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkOrderCost is a priced line item. When InventoryItemID is set, Quantity
// represents units drawn from that item; quantity edits must produce a
// compensating inventory delta.
type WorkOrderCost struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WorkOrderID     uuid.UUID  `gorm:"column:work_order_id;type:uuid;not null;index"`
	Description     string     `gorm:"column:description;not null"`
	Quantity        int        `gorm:"column:quantity;not null;default:1"`
	UnitPriceCents  int64      `gorm:"column:unit_price_cents;not null;default:0"`
	TotalPriceCents *int64     `gorm:"column:total_price_cents"`
	InventoryItemID *uuid.UUID `gorm:"column:inventory_item_id;type:uuid"`
	CreatedBy       uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveTotalCents returns the stored total, falling back to quantity
// times unit price when no explicit total was recorded.
func (c WorkOrderCost) EffectiveTotalCents() int64 {
	if c.TotalPriceCents != nil {
		return *c.TotalPriceCents
	}
	return int64(c.Quantity) * c.UnitPriceCents
}
