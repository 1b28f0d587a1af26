package costs

import (
	"time"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CreateCostInput holds the fields accepted when adding a cost line item.
type CreateCostInput struct {
	WorkOrderID     uuid.UUID
	Description     string
	Quantity        int
	UnitPriceCents  int64
	TotalPriceCents *int64
	InventoryItemID *uuid.UUID
}

// UpdateCostInput is a whitelist partial update; only non-nil fields apply.
type UpdateCostInput struct {
	Description     *string
	Quantity        *int
	UnitPriceCents  *int64
	TotalPriceCents *int64
}

// InventoryAdjustment reports the compensating delta computed for an
// inventory-linked cost mutation. Applied is false when the compensation
// could not be written; the cost mutation itself still stands.
type InventoryAdjustment struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Delta           int       `json:"delta"`
	Applied         bool      `json:"applied"`
}

// Cost is the read projection with the creator resolved.
type Cost struct {
	ID              uuid.UUID  `json:"id"`
	WorkOrderID     uuid.UUID  `json:"work_order_id"`
	Description     string     `json:"description"`
	Quantity        int        `json:"quantity"`
	UnitPriceCents  int64      `json:"unit_price_cents"`
	TotalPriceCents int64      `json:"total_price_cents"`
	InventoryItemID *uuid.UUID `json:"inventory_item_id,omitempty"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatorName     string     `json:"creator_name"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UpdateResult pairs the updated cost with any compensating adjustment.
type UpdateResult struct {
	Cost                Cost                 `json:"cost"`
	InventoryAdjustment *InventoryAdjustment `json:"inventory_adjustment,omitempty"`
}

// UserCostSummary aggregates spend per creating user.
type UserCostSummary struct {
	UserID     uuid.UUID `json:"user_id"`
	UserName   string    `json:"user_name"`
	TotalCents int64     `json:"total_cents"`
	CostCount  int64     `json:"cost_count"`
}

func toCost(row models.WorkOrderCost, creatorName string) Cost {
	return Cost{
		ID:              row.ID,
		WorkOrderID:     row.WorkOrderID,
		Description:     row.Description,
		Quantity:        row.Quantity,
		UnitPriceCents:  row.UnitPriceCents,
		TotalPriceCents: row.EffectiveTotalCents(),
		InventoryItemID: row.InventoryItemID,
		CreatedBy:       row.CreatedBy,
		CreatorName:     creatorName,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
