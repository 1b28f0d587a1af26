package models

import (
	"time"

	"github.com/google/uuid"
)

// QuickBooksCredential stores tokens for a connected company. The
// (organization_id, realm_id) pair is unique: reconnecting overwrites.
type QuickBooksCredential struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID        uuid.UUID `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_qb_credentials_org_realm"`
	RealmID               string    `gorm:"column:realm_id;not null;uniqueIndex:idx_qb_credentials_org_realm"`
	AccessToken           string    `gorm:"column:access_token;not null"`
	RefreshToken          string    `gorm:"column:refresh_token;not null"`
	AccessTokenExpiresAt  time.Time `gorm:"column:access_token_expires_at;not null"`
	RefreshTokenExpiresAt time.Time `gorm:"column:refresh_token_expires_at;not null"`
	ConnectedBy           uuid.UUID `gorm:"column:connected_by;type:uuid;not null"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides gorm's default, which would split QuickBooks into
// quick_books.
func (QuickBooksCredential) TableName() string {
	return "quickbooks_credentials"
}
