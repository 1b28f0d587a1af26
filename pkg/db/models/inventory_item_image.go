package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItemImage records an uploaded item photo. At most five rows may
// exist per item; the cap is enforced before upload, not by the schema.
type InventoryItemImage struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID         uuid.UUID `gorm:"column:item_id;type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	StorageKey     string    `gorm:"column:storage_key;not null;unique"`
	PublicURL      string    `gorm:"column:public_url;not null"`
	FileName       string    `gorm:"column:file_name;not null"`
	MimeType       string    `gorm:"column:mime_type;not null"`
	SizeBytes      int64     `gorm:"column:size_bytes;not null"`
	UploadedBy     uuid.UUID `gorm:"column:uploaded_by;type:uuid;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
