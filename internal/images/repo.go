package images

import (
	"context"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists attachment rows. Blob bytes live in object storage;
// rows are the source of truth for what should exist there.
type Repository interface {
	Create(ctx context.Context, image *models.InventoryItemImage) error
	FindByID(ctx context.Context, orgID, imageID uuid.UUID) (*models.InventoryItemImage, error)
	ListForItem(ctx context.Context, orgID, itemID uuid.UUID) ([]models.InventoryItemImage, error)
	CountForItem(ctx context.Context, orgID, itemID uuid.UUID) (int64, error)
	UsageForOrganization(ctx context.Context, orgID uuid.UUID) (totalBytes, count int64, err error)
	Delete(ctx context.Context, orgID, imageID uuid.UUID) error
	DeleteForItem(ctx context.Context, orgID, itemID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs an images repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, image *models.InventoryItemImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, imageID uuid.UUID) (*models.InventoryItemImage, error) {
	var row models.InventoryItemImage
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("id = ?", imageID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListForItem(ctx context.Context, orgID, itemID uuid.UUID) ([]models.InventoryItemImage, error) {
	var rows []models.InventoryItemImage
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountForItem(ctx context.Context, orgID, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItemImage{}).
		Where("organization_id = ?", orgID).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count, err
}

func (r *repository) UsageForOrganization(ctx context.Context, orgID uuid.UUID) (int64, int64, error) {
	var row struct {
		TotalBytes int64
		ImageCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItemImage{}).
		Select("COALESCE(SUM(size_bytes), 0) AS total_bytes, COUNT(*) AS image_count").
		Where("organization_id = ?", orgID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.TotalBytes, row.ImageCount, nil
}

func (r *repository) Delete(ctx context.Context, orgID, imageID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("id = ?", imageID).
		Delete(&models.InventoryItemImage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteForItem(ctx context.Context, orgID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("item_id = ?", itemID).
		Delete(&models.InventoryItemImage{}).Error
}
