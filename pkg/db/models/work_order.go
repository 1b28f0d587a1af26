package models

import (
	"time"

	"github.com/equipqr/equipqr-backend/pkg/enums"
	"github.com/google/uuid"
)

// WorkOrder is the maintenance job costs attach to.
type WorkOrder struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID             `gorm:"column:organization_id;type:uuid;not null;index"`
	EquipmentID    *uuid.UUID            `gorm:"column:equipment_id;type:uuid"`
	Title          string                `gorm:"column:title;not null"`
	Status         enums.WorkOrderStatus `gorm:"column:status;type:work_order_status;not null;default:'submitted'"`
	CreatedBy      uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
