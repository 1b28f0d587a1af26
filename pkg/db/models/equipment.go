package models

import (
	"time"

	"github.com/google/uuid"
)

// Equipment is a serviced asset; normalized manufacturer/model columns feed
// pattern-rule matching.
type Equipment struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID         uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	Name                   string     `gorm:"column:name;not null"`
	Manufacturer           string     `gorm:"column:manufacturer;not null"`
	Model                  string     `gorm:"column:model;not null"`
	SerialNumber           *string    `gorm:"column:serial_number"`
	NormalizedManufacturer string     `gorm:"column:normalized_manufacturer;not null;index"`
	NormalizedModel        string     `gorm:"column:normalized_model;not null;index"`
	TeamID                 *uuid.UUID `gorm:"column:team_id;type:uuid"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
