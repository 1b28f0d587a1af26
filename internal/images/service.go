package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/db/models"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/equipqr/equipqr-backend/pkg/pubsub"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

var allowedImageMimeTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

type blobStore interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) error
	Delete(ctx context.Context, objectName string) error
	PublicURL(objectName string) string
}

// cleanupQueue hands blobs the API failed to delete to the async worker.
type cleanupQueue interface {
	PublishCleanup(ctx context.Context, msg pubsub.CleanupMessage) error
}

type rollbackMetrics interface {
	IncImageRollbackOrphan()
}

// Service manages item photo attachments: capped batch uploads with
// all-or-nothing semantics and row-first deletion.
type Service interface {
	UploadImages(ctx context.Context, orgID, userID, itemID uuid.UUID, files []UploadFile) ([]Image, error)
	ListImages(ctx context.Context, orgID, itemID uuid.UUID) ([]Image, error)
	DeleteImage(ctx context.Context, orgID, imageID uuid.UUID) error
	DeleteAllForItem(ctx context.Context, orgID, itemID uuid.UUID) error
	GetUsage(ctx context.Context, orgID uuid.UUID) (*Usage, error)
}

type service struct {
	repo    Repository
	blobs   blobStore
	cleanup cleanupQueue
	metrics rollbackMetrics
	cfg     config.ImagesConfig
	logg    *logger.Logger
}

// NewService builds the attachment service. The cleanup queue and metrics are
// optional; rollback failures degrade to log lines without them.
func NewService(repo Repository, blobs blobStore, cleanup cleanupQueue, metrics rollbackMetrics, cfg config.ImagesConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("images repository required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxPerItem <= 0 {
		return nil, fmt.Errorf("max images per item must be positive")
	}
	return &service{
		repo:    repo,
		blobs:   blobs,
		cleanup: cleanup,
		metrics: metrics,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

// UploadImages stores a batch of attachments. Either every file in the batch
// is persisted or none are: a failure part-way through deletes the rows and
// blobs already written for this batch before returning the original error.
func (s *service) UploadImages(ctx context.Context, orgID, userID, itemID uuid.UUID, files []UploadFile) ([]Image, error) {
	if orgID == uuid.Nil || userID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization, user, and item ids are required")
	}
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one file is required")
	}

	var incomingBytes int64
	for i := range files {
		if err := s.validateFile(&files[i]); err != nil {
			return nil, err
		}
		incomingBytes += files[i].SizeBytes
	}

	existing, err := s.repo.CountForItem(ctx, orgID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count item images")
	}
	if existing+int64(len(files)) > int64(s.cfg.MaxPerItem) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("an item can have at most %d images", s.cfg.MaxPerItem))
	}

	usedBytes, _, err := s.repo.UsageForOrganization(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read storage usage")
	}
	if usedBytes+incomingBytes > s.cfg.StorageQuotaBytes() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "image storage quota exceeded")
	}

	committed := make([]models.InventoryItemImage, 0, len(files))
	for _, file := range files {
		key := s.storageKey(orgID, itemID, file.FileName)

		if err := s.blobs.Upload(ctx, key, file.MimeType, file.Content); err != nil {
			s.rollback(ctx, committed)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
		}

		row := models.InventoryItemImage{
			ID:             uuid.New(),
			ItemID:         itemID,
			OrganizationID: orgID,
			StorageKey:     key,
			PublicURL:      s.blobs.PublicURL(key),
			FileName:       file.FileName,
			MimeType:       file.MimeType,
			SizeBytes:      file.SizeBytes,
			UploadedBy:     userID,
		}
		if err := s.repo.Create(ctx, &row); err != nil {
			// The blob just written has no row pointing at it; remove it
			// before unwinding the rest of the batch.
			if delErr := s.blobs.Delete(ctx, key); delErr != nil {
				s.reportOrphan(ctx, key, delErr)
			}
			s.rollback(ctx, committed)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist image record")
		}
		committed = append(committed, row)
	}

	out := make([]Image, len(committed))
	for i, row := range committed {
		out[i] = toImage(row)
	}
	return out, nil
}

// ListImages returns an item's attachments, oldest first.
func (s *service) ListImages(ctx context.Context, orgID, itemID uuid.UUID) ([]Image, error) {
	if orgID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and item ids are required")
	}
	rows, err := s.repo.ListForItem(ctx, orgID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item images")
	}
	out := make([]Image, len(rows))
	for i, row := range rows {
		out[i] = toImage(row)
	}
	return out, nil
}

// DeleteImage removes the database row first, then the blob. Once the row is
// gone the deletion is reported as successful even if the blob removal has to
// be handed to the cleanup worker.
func (s *service) DeleteImage(ctx context.Context, orgID, imageID uuid.UUID) error {
	if orgID == uuid.Nil || imageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization and image ids are required")
	}

	row, err := s.repo.FindByID(ctx, orgID, imageID)
	if err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find image")
	}

	if err := s.repo.Delete(ctx, orgID, imageID); err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image record")
	}

	if err := s.blobs.Delete(ctx, row.StorageKey); err != nil {
		s.reportOrphan(ctx, row.StorageKey, err)
	}
	return nil
}

// DeleteAllForItem removes every attachment for an item, rows first.
func (s *service) DeleteAllForItem(ctx context.Context, orgID, itemID uuid.UUID) error {
	if orgID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization and item ids are required")
	}

	rows, err := s.repo.ListForItem(ctx, orgID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item images")
	}
	if len(rows) == 0 {
		return nil
	}

	if err := s.repo.DeleteForItem(ctx, orgID, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image records")
	}

	for _, row := range rows {
		if err := s.blobs.Delete(ctx, row.StorageKey); err != nil {
			s.reportOrphan(ctx, row.StorageKey, err)
		}
	}
	return nil
}

// GetUsage reports the organization's storage consumption against quota.
func (s *service) GetUsage(ctx context.Context, orgID uuid.UUID) (*Usage, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}
	usedBytes, count, err := s.repo.UsageForOrganization(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read storage usage")
	}
	return &Usage{
		UsedBytes:  usedBytes,
		QuotaBytes: s.cfg.StorageQuotaBytes(),
		ImageCount: count,
	}, nil
}

func (s *service) validateFile(file *UploadFile) error {
	file.FileName = strings.TrimSpace(file.FileName)
	if file.FileName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if file.Content == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file content is required")
	}
	if file.SizeBytes <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
	}
	if s.cfg.MaxFileBytes > 0 && file.SizeBytes > s.cfg.MaxFileBytes {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file %q exceeds the %d byte limit", file.FileName, s.cfg.MaxFileBytes))
	}

	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(file.MimeType))
	if err != nil || mediaType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "mime type invalid")
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := allowedImageMimeTypes[mediaType]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("mime type %q is not an accepted image format", mediaType))
	}
	file.MimeType = mediaType
	return nil
}

// rollback unwinds rows and blobs already committed in this batch. Blob
// deletions that fail are surfaced as orphans rather than failing the unwind.
func (s *service) rollback(ctx context.Context, committed []models.InventoryItemImage) {
	var errs error
	for _, row := range committed {
		if err := s.repo.Delete(ctx, row.OrganizationID, row.ID); err != nil && !isNotFound(err) {
			errs = multierr.Append(errs, fmt.Errorf("delete row %s: %w", row.ID, err))
		}
		if err := s.blobs.Delete(ctx, row.StorageKey); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete blob %s: %w", row.StorageKey, err))
			s.reportOrphan(ctx, row.StorageKey, err)
		}
	}
	if errs != nil {
		s.logg.Warn(ctx, "image batch rollback incomplete: "+errs.Error())
	}
}

// reportOrphan records a blob we know about but could not delete and asks the
// cleanup worker to retry it.
func (s *service) reportOrphan(ctx context.Context, storageKey string, cause error) {
	if s.metrics != nil {
		s.metrics.IncImageRollbackOrphan()
	}
	s.logg.Warn(ctx, fmt.Sprintf("orphaned image blob %s: %v", storageKey, cause))
	if s.cleanup == nil {
		return
	}
	err := s.cleanup.PublishCleanup(ctx, pubsub.CleanupMessage{
		StorageKey: storageKey,
		Reason:     "inline delete failed",
	})
	if err != nil {
		s.logg.Error(ctx, "enqueue blob cleanup", err)
	}
}

func (s *service) storageKey(orgID, itemID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
	default:
		ext = ""
	}
	return fmt.Sprintf("inventory-images/%s/%s/%s%s", orgID, itemID, uuid.New(), ext)
}

func toImage(row models.InventoryItemImage) Image {
	return Image{
		ID:         row.ID,
		ItemID:     row.ItemID,
		PublicURL:  row.PublicURL,
		FileName:   row.FileName,
		MimeType:   row.MimeType,
		SizeBytes:  row.SizeBytes,
		UploadedBy: row.UploadedBy,
		CreatedAt:  row.CreatedAt,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
