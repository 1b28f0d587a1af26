package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/equipqr/equipqr-backend/internal/profiles"
	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/equipqr/equipqr-backend/pkg/enums"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/equipqr/equipqr-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profilesRepository interface {
	DisplayNames(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// imageCleaner removes every stored image for an item. Used best-effort
// during item deletion.
type imageCleaner interface {
	DeleteAllForItem(ctx context.Context, orgID, itemID uuid.UUID) error
}

// Service is the single source of truth for on-hand quantity changes and
// their audit trail.
type Service interface {
	CreateItem(ctx context.Context, orgID, userID uuid.UUID, input CreateItemInput) (*Item, error)
	GetItem(ctx context.Context, orgID, itemID uuid.UUID) (*Item, error)
	UpdateItem(ctx context.Context, orgID, itemID uuid.UUID, input UpdateItemInput) (*Item, error)
	DeleteItem(ctx context.Context, orgID, itemID uuid.UUID) error
	ListItems(ctx context.Context, orgID uuid.UUID, filters ListFilters) (*pagination.Page[Item], error)
	AdjustQuantity(ctx context.Context, orgID, userID uuid.UUID, input AdjustQuantityInput) (int, error)
	ListTransactions(ctx context.Context, orgID uuid.UUID, itemID *uuid.UUID, params pagination.Params) (*pagination.Page[Transaction], error)
}

type service struct {
	repo     Repository
	tx       txRunner
	profiles profilesRepository
	images   imageCleaner
	logg     *logger.Logger
}

// NewService builds the inventory ledger service.
func NewService(repo Repository, tx txRunner, profilesRepo profilesRepository, images imageCleaner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if profilesRepo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		profiles: profilesRepo,
		images:   images,
		logg:     logg,
	}, nil
}

// CreateItem inserts the item and, when the initial quantity is positive, its
// matching initial transaction in one database transaction so an item can
// never exist with quantity set but no audit trail.
func (s *service) CreateItem(ctx context.Context, orgID, userID uuid.UUID, input CreateItemInput) (*Item, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.InitialQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial quantity cannot be negative")
	}
	if input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold cannot be negative")
	}

	row := &models.InventoryItem{
		OrganizationID:    orgID,
		Name:              strings.TrimSpace(input.Name),
		SKU:               input.SKU,
		ExternalID:        input.ExternalID,
		Description:       input.Description,
		Location:          input.Location,
		QuantityOnHand:    input.InitialQuantity,
		LowStockThreshold: input.LowStockThreshold,
		DefaultUnitCost:   input.DefaultUnitCost,
		ImageURL:          input.ImageURL,
		CreatedBy:         userID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.CreateItem(ctx, row)
		if err != nil {
			return err
		}
		if input.InitialQuantity > 0 {
			return repo.CreateTransaction(ctx, &models.InventoryTransaction{
				ItemID:           created.ID,
				OrganizationID:   orgID,
				UserID:           userID,
				PreviousQuantity: 0,
				NewQuantity:      input.InitialQuantity,
				ChangeAmount:     input.InitialQuantity,
				Type:             enums.TransactionTypeInitial,
			})
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}

	item := toItem(*row)
	return &item, nil
}

func (s *service) GetItem(ctx context.Context, orgID, itemID uuid.UUID) (*Item, error) {
	if orgID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and item ids are required")
	}
	row, err := s.repo.FindItemByID(ctx, orgID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup inventory item")
	}
	item := toItem(*row)
	return &item, nil
}

// UpdateItem applies a whitelist partial update. Quantity is deliberately not
// updatable here; all quantity changes go through AdjustQuantity.
func (s *service) UpdateItem(ctx context.Context, orgID, itemID uuid.UUID, input UpdateItemInput) (*Item, error) {
	if orgID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and item ids are required")
	}

	fields := map[string]any{}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = trimmed
	}
	if input.SKU != nil {
		fields["sku"] = nullableText(*input.SKU)
	}
	if input.ExternalID != nil {
		fields["external_id"] = nullableText(*input.ExternalID)
	}
	if input.Description != nil {
		fields["description"] = nullableText(*input.Description)
	}
	if input.Location != nil {
		fields["location"] = nullableText(*input.Location)
	}
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold cannot be negative")
		}
		fields["low_stock_threshold"] = *input.LowStockThreshold
	}
	if input.DefaultUnitCost != nil {
		fields["default_unit_cost"] = *input.DefaultUnitCost
	}
	if input.ImageURL != nil {
		fields["image_url"] = nullableText(*input.ImageURL)
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateItemFields(ctx, orgID, itemID, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
		}
	}

	return s.GetItem(ctx, orgID, itemID)
}

// DeleteItem best-effort removes attached images from blob storage, then
// deletes the row; the backend cascades transaction rows.
func (s *service) DeleteItem(ctx context.Context, orgID, itemID uuid.UUID) error {
	if orgID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization and item ids are required")
	}

	if s.images != nil {
		if err := s.images.DeleteAllForItem(ctx, orgID, itemID); err != nil {
			s.logg.Warn(s.logg.WithItemID(ctx, itemID.String()), "image cleanup failed during item deletion")
		}
	}

	if err := s.repo.DeleteItem(ctx, orgID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory item")
	}
	return nil
}

func (s *service) ListItems(ctx context.Context, orgID uuid.UUID, filters ListFilters) (*pagination.Page[Item], error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}

	params := pagination.Params{Page: filters.Page, Limit: filters.Limit}.Normalize()
	filters.Page = params.Page
	filters.Limit = params.Limit

	rows, total, err := s.repo.ListItems(ctx, orgID, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = toItem(row)
	}
	page := pagination.NewPage(items, total, params)
	return &page, nil
}

// AdjustQuantity applies a signed delta and its audit row in one database
// transaction. Zero deltas are rejected here rather than trusting callers.
func (s *service) AdjustQuantity(ctx context.Context, orgID, userID uuid.UUID, input AdjustQuantityInput) (int, error) {
	if orgID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.ItemID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if input.Delta == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	if !input.Type.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}

	var newQuantity int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		quantity, err := repo.AdjustQuantity(ctx, orgID, input.ItemID, input.Delta)
		if err != nil {
			return err
		}
		newQuantity = quantity

		return repo.CreateTransaction(ctx, &models.InventoryTransaction{
			ItemID:           input.ItemID,
			OrganizationID:   orgID,
			UserID:           userID,
			PreviousQuantity: quantity - input.Delta,
			NewQuantity:      quantity,
			ChangeAmount:     input.Delta,
			Type:             input.Type,
			Notes:            input.Notes,
			WorkOrderID:      input.WorkOrderID,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		case errors.Is(err, ErrInsufficientStock):
			return 0, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for adjustment")
		default:
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust inventory quantity")
		}
	}
	return newQuantity, nil
}

// ListTransactions returns the audit trail newest-first with acting-user
// display names resolved through the organization's memberships.
func (s *service) ListTransactions(ctx context.Context, orgID uuid.UUID, itemID *uuid.UUID, params pagination.Params) (*pagination.Page[Transaction], error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}

	n := params.Normalize()
	rows, total, err := s.repo.ListTransactions(ctx, orgID, itemID, n.Limit, n.Offset())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory transactions")
	}

	userIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]struct{}{}
	for _, row := range rows {
		if _, ok := seen[row.UserID]; !ok {
			seen[row.UserID] = struct{}{}
			userIDs = append(userIDs, row.UserID)
		}
	}

	names, err := s.profiles.DisplayNames(ctx, orgID, userIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve transaction users")
	}

	items := make([]Transaction, len(rows))
	for i, row := range rows {
		name, ok := names[row.UserID]
		if !ok {
			name = profiles.UnknownUser
		}
		items[i] = Transaction{
			ID:               row.ID,
			ItemID:           row.ItemID,
			UserID:           row.UserID,
			UserName:         name,
			PreviousQuantity: row.PreviousQuantity,
			NewQuantity:      row.NewQuantity,
			ChangeAmount:     row.ChangeAmount,
			Type:             row.Type,
			Notes:            row.Notes,
			WorkOrderID:      row.WorkOrderID,
			CreatedAt:        row.CreatedAt,
		}
	}

	page := pagination.NewPage(items, total, n)
	return &page, nil
}

func nullableText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
