package models

import (
	"time"

	"github.com/equipqr/equipqr-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrganizationMembership binds a user to an organization with a role.
type OrganizationMembership struct {
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;primaryKey"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;primaryKey"`
	Role           enums.MemberRole `gorm:"column:role;type:member_role;not null"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
}
