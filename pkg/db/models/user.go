package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity-provider profile. The table is not organization
// scoped, so display names are resolved through organization membership.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email       string    `gorm:"column:email;not null;unique"`
	DisplayName string    `gorm:"column:display_name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
