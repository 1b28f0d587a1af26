package inventory

import (
	"time"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/equipqr/equipqr-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateItemInput holds the fields accepted when creating an item.
type CreateItemInput struct {
	Name              string
	SKU               *string
	ExternalID        *string
	Description       *string
	Location          *string
	InitialQuantity   int
	LowStockThreshold int
	DefaultUnitCost   decimal.NullDecimal
	ImageURL          *string
}

// UpdateItemInput is a whitelist partial update: only non-nil fields are
// applied, so "not provided" and "explicitly cleared" stay distinct.
type UpdateItemInput struct {
	Name              *string
	SKU               *string
	ExternalID        *string
	Description       *string
	Location          *string
	LowStockThreshold *int
	DefaultUnitCost   *decimal.NullDecimal
	ImageURL          *string
}

// ListFilters narrows item listings.
type ListFilters struct {
	Search       string
	Location     string
	LowStockOnly bool
	Page         int
	Limit        int
}

// Item is the read projection returned to callers; IsLowStock is derived on
// every read and never persisted.
type Item struct {
	ID                uuid.UUID           `json:"id"`
	OrganizationID    uuid.UUID           `json:"organization_id"`
	Name              string              `json:"name"`
	SKU               *string             `json:"sku,omitempty"`
	ExternalID        *string             `json:"external_id,omitempty"`
	Description       *string             `json:"description,omitempty"`
	Location          *string             `json:"location,omitempty"`
	QuantityOnHand    int                 `json:"quantity_on_hand"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
	DefaultUnitCost   decimal.NullDecimal `json:"default_unit_cost"`
	ImageURL          *string             `json:"image_url,omitempty"`
	IsLowStock        bool                `json:"is_low_stock"`
	CreatedBy         uuid.UUID           `json:"created_by"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toItem(row models.InventoryItem) Item {
	return Item{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		Name:              row.Name,
		SKU:               row.SKU,
		ExternalID:        row.ExternalID,
		Description:       row.Description,
		Location:          row.Location,
		QuantityOnHand:    row.QuantityOnHand,
		LowStockThreshold: row.LowStockThreshold,
		DefaultUnitCost:   row.DefaultUnitCost,
		ImageURL:          row.ImageURL,
		IsLowStock:        row.IsLowStock(),
		CreatedBy:         row.CreatedBy,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

// AdjustQuantityInput describes a signed quantity change.
type AdjustQuantityInput struct {
	ItemID      uuid.UUID
	Delta       int
	Type        enums.TransactionType
	Notes       *string
	WorkOrderID *uuid.UUID
}

// Transaction is the audit-row projection with the acting user resolved.
type Transaction struct {
	ID               uuid.UUID             `json:"id"`
	ItemID           uuid.UUID             `json:"item_id"`
	UserID           uuid.UUID             `json:"user_id"`
	UserName         string                `json:"user_name"`
	PreviousQuantity int                   `json:"previous_quantity"`
	NewQuantity      int                   `json:"new_quantity"`
	ChangeAmount     int                   `json:"change_amount"`
	Type             enums.TransactionType `json:"transaction_type"`
	Notes            *string               `json:"notes,omitempty"`
	WorkOrderID      *uuid.UUID            `json:"work_order_id,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}
