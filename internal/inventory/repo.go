package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes item and transaction persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateItem(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	FindItemByID(ctx context.Context, orgID, itemID uuid.UUID) (*models.InventoryItem, error)
	UpdateItemFields(ctx context.Context, orgID, itemID uuid.UUID, fields map[string]any) error
	DeleteItem(ctx context.Context, orgID, itemID uuid.UUID) error
	ListItems(ctx context.Context, orgID uuid.UUID, filters ListFilters) ([]models.InventoryItem, int64, error)

	// AdjustQuantity applies the signed delta with a guard that the result
	// stays non-negative, in a single UPDATE so concurrent adjustments never
	// race. Returns the new quantity, or ErrInsufficientStock when the guard
	// rejects the change.
	AdjustQuantity(ctx context.Context, orgID, itemID uuid.UUID, delta int) (int, error)

	CreateTransaction(ctx context.Context, row *models.InventoryTransaction) error
	ListTransactions(ctx context.Context, orgID uuid.UUID, itemID *uuid.UUID, limit, offset int) ([]models.InventoryTransaction, int64, error)
}

// ErrInsufficientStock signals the delta would drive quantity below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

type repository struct {
	db *gorm.DB
}

// NewRepository constructs an inventory repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateItem(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindItemByID(ctx context.Context, orgID, itemID uuid.UUID) (*models.InventoryItem, error) {
	var row models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", itemID, orgID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateItemFields(ctx context.Context, orgID, itemID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND organization_id = ?", itemID, orgID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, orgID, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", itemID, orgID).
		Delete(&models.InventoryItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, orgID uuid.UUID, filters ListFilters) ([]models.InventoryItem, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("organization_id = ?", orgID)

	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(COALESCE(sku, '')) LIKE ? OR LOWER(COALESCE(external_id, '')) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if location := strings.TrimSpace(filters.Location); location != "" {
		query = query.Where("LOWER(COALESCE(location, '')) LIKE ?", "%"+strings.ToLower(location)+"%")
	}
	if filters.LowStockOnly {
		query = query.Where("quantity_on_hand < low_stock_threshold")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryItem
	err := query.
		Order("name ASC").Order("id ASC").
		Limit(filters.Limit).Offset((filters.Page - 1) * filters.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) AdjustQuantity(ctx context.Context, orgID, itemID uuid.UUID, delta int) (int, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND organization_id = ?", itemID, orgID).
		Where("quantity_on_hand + ? >= 0", delta).
		Updates(map[string]any{"quantity_on_hand": gorm.Expr("quantity_on_hand + ?", delta)})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the item is missing or the guard rejected the delta.
		var exists int64
		err := r.db.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("id = ? AND organization_id = ?", itemID, orgID).
			Count(&exists).Error
		if err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, gorm.ErrRecordNotFound
		}
		return 0, ErrInsufficientStock
	}

	var quantity int
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND organization_id = ?", itemID, orgID).
		Pluck("quantity_on_hand", &quantity).Error
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

func (r *repository) CreateTransaction(ctx context.Context, row *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListTransactions(ctx context.Context, orgID uuid.UUID, itemID *uuid.UUID, limit, offset int) ([]models.InventoryTransaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Where("organization_id = ?", orgID)
	if itemID != nil {
		query = query.Where("item_id = ?", *itemID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryTransaction
	err := query.
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
