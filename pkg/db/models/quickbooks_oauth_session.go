package models

import (
	"time"

	"github.com/google/uuid"
)

// QuickBooksOAuthSession is server-side OAuth connect state. Valid for at
// most one hour and exactly one validation call.
type QuickBooksOAuthSession struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionToken   string    `gorm:"column:session_token;not null;unique"`
	Nonce          string    `gorm:"column:nonce;not null"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	RedirectURL    *string   `gorm:"column:redirect_url"`
	OriginURL      *string   `gorm:"column:origin_url"`
	Used           bool      `gorm:"column:used;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides gorm's default, which would split QuickBooks into
// quick_books.
func (QuickBooksOAuthSession) TableName() string {
	return "quickbooks_oauth_sessions"
}
