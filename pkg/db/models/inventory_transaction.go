package models

import (
	"time"

	"github.com/equipqr/equipqr-backend/pkg/enums"
	"github.com/google/uuid"
)

// InventoryTransaction is the append-only audit row behind every quantity
// change. NewQuantity must always equal PreviousQuantity + ChangeAmount.
type InventoryTransaction struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID           uuid.UUID             `gorm:"column:item_id;type:uuid;not null;index"`
	OrganizationID   uuid.UUID             `gorm:"column:organization_id;type:uuid;not null;index"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	PreviousQuantity int                   `gorm:"column:previous_quantity;not null"`
	NewQuantity      int                   `gorm:"column:new_quantity;not null"`
	ChangeAmount     int                   `gorm:"column:change_amount;not null"`
	Type             enums.TransactionType `gorm:"column:transaction_type;type:transaction_type;not null"`
	Notes            *string               `gorm:"column:notes"`
	WorkOrderID      *uuid.UUID            `gorm:"column:work_order_id;type:uuid"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}
