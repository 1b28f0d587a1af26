package images

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// UploadFile is one incoming attachment in a batch upload.
type UploadFile struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Content   io.Reader
}

// Image is the stored-attachment projection returned to clients.
type Image struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	PublicURL  string    `json:"public_url"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedBy uuid.UUID `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Usage reports an organization's attachment storage consumption.
type Usage struct {
	UsedBytes  int64 `json:"used_bytes"`
	QuotaBytes int64 `json:"quota_bytes"`
	ImageCount int64 `json:"image_count"`
}
