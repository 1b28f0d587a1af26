package costs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/equipqr/equipqr-backend/internal/inventory"
	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/equipqr/equipqr-backend/pkg/enums"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const unknownCreator = "Unknown"

type inventoryAdjuster interface {
	AdjustQuantity(ctx context.Context, orgID, userID uuid.UUID, input inventory.AdjustQuantityInput) (int, error)
}

type profilesRepository interface {
	DisplayNames(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type compensationMetrics interface {
	IncCompensationFailure(operation string)
}

// Service keeps work-order cost line items and the inventory they draw from
// consistent when quantities change.
type Service interface {
	CreateCost(ctx context.Context, orgID, userID uuid.UUID, input CreateCostInput) (*UpdateResult, error)
	UpdateCostWithQuantityTracking(ctx context.Context, orgID, userID, costID uuid.UUID, patch UpdateCostInput) (*UpdateResult, error)
	DeleteCostWithInventoryInfo(ctx context.Context, orgID, userID, costID uuid.UUID) (*InventoryAdjustment, error)
	GetAllCostsWithCreators(ctx context.Context, orgID uuid.UUID, workOrderID *uuid.UUID) ([]Cost, error)
	GetCostSummaryByUser(ctx context.Context, orgID uuid.UUID) ([]UserCostSummary, error)
}

type service struct {
	repo      Repository
	inventory inventoryAdjuster
	profiles  profilesRepository
	metrics   compensationMetrics
	logg      *logger.Logger
}

// NewService builds the cost/inventory reconciliation service.
func NewService(repo Repository, inv inventoryAdjuster, profilesRepo profilesRepository, metrics compensationMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("costs repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if profilesRepo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		inventory: inv,
		profiles:  profilesRepo,
		metrics:   metrics,
		logg:      logg,
	}, nil
}

// CreateCost inserts the line item; when it is inventory-linked the drawn
// quantity is deducted from stock as a work_order transaction.
func (s *service) CreateCost(ctx context.Context, orgID, userID uuid.UUID, input CreateCostInput) (*UpdateResult, error) {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and user identities are required")
	}
	if input.WorkOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work_order_id is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	if _, err := s.repo.FindWorkOrder(ctx, orgID, input.WorkOrderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "work order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup work order")
	}

	row := &models.WorkOrderCost{
		WorkOrderID:     input.WorkOrderID,
		Description:     strings.TrimSpace(input.Description),
		Quantity:        input.Quantity,
		UnitPriceCents:  input.UnitPriceCents,
		TotalPriceCents: input.TotalPriceCents,
		InventoryItemID: input.InventoryItemID,
		CreatedBy:       userID,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cost")
	}

	var adjustment *InventoryAdjustment
	if created.InventoryItemID != nil {
		adjustment = s.applyAdjustment(ctx, orgID, userID, "create_cost", *created.InventoryItemID, -created.Quantity, created.WorkOrderID)
	}

	return &UpdateResult{Cost: toCost(*created, s.creatorName(ctx, orgID, created.CreatedBy)), InventoryAdjustment: adjustment}, nil
}

// UpdateCostWithQuantityTracking applies the patch and, for inventory-linked
// costs whose quantity changed, writes the compensating delta
// (oldQuantity - newQuantity; positive returns stock, negative consumes more).
// The two writes are separate calls; a compensation failure is reported on
// the result and metered, never masking the successful cost update.
func (s *service) UpdateCostWithQuantityTracking(ctx context.Context, orgID, userID, costID uuid.UUID, patch UpdateCostInput) (*UpdateResult, error) {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and user identities are required")
	}
	if costID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost id is required")
	}

	current, err := s.repo.FindByID(ctx, orgID, costID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cost not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cost")
	}

	fields := map[string]any{}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		fields["description"] = trimmed
	}
	if patch.Quantity != nil {
		if *patch.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		fields["quantity"] = *patch.Quantity
	}
	if patch.UnitPriceCents != nil {
		if *patch.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		fields["unit_price_cents"] = *patch.UnitPriceCents
	}
	if patch.TotalPriceCents != nil {
		fields["total_price_cents"] = *patch.TotalPriceCents
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, costID, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cost")
		}
	}

	updated, err := s.repo.FindByID(ctx, orgID, costID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cost")
	}

	var adjustment *InventoryAdjustment
	if current.InventoryItemID != nil && patch.Quantity != nil && *patch.Quantity != current.Quantity {
		delta := current.Quantity - *patch.Quantity
		adjustment = s.applyAdjustment(ctx, orgID, userID, "update_cost", *current.InventoryItemID, delta, current.WorkOrderID)
	}

	return &UpdateResult{Cost: toCost(*updated, s.creatorName(ctx, orgID, updated.CreatedBy)), InventoryAdjustment: adjustment}, nil
}

// DeleteCostWithInventoryInfo removes the row and, for inventory-linked
// costs, restores the drawn quantity to stock. Returns nil for costs that
// never touched inventory.
func (s *service) DeleteCostWithInventoryInfo(ctx context.Context, orgID, userID, costID uuid.UUID) (*InventoryAdjustment, error) {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and user identities are required")
	}
	if costID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost id is required")
	}

	current, err := s.repo.FindByID(ctx, orgID, costID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cost not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cost")
	}

	if err := s.repo.Delete(ctx, costID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cost")
	}

	if current.InventoryItemID == nil {
		return nil, nil
	}
	return s.applyAdjustment(ctx, orgID, userID, "delete_cost", *current.InventoryItemID, current.Quantity, current.WorkOrderID), nil
}

// GetAllCostsWithCreators lists costs with creator display names attached.
// A work order outside the caller's organization yields an empty list, not
// another tenant's rows.
func (s *service) GetAllCostsWithCreators(ctx context.Context, orgID uuid.UUID, workOrderID *uuid.UUID) ([]Cost, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}

	var rows []models.WorkOrderCost
	var err error
	if workOrderID != nil {
		if _, woErr := s.repo.FindWorkOrder(ctx, orgID, *workOrderID); woErr != nil {
			if errors.Is(woErr, gorm.ErrRecordNotFound) {
				return []Cost{}, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, woErr, "lookup work order")
		}
		rows, err = s.repo.ListByWorkOrder(ctx, *workOrderID)
	} else {
		rows, err = s.repo.ListByOrganization(ctx, orgID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list costs")
	}

	names, err := s.resolveNames(ctx, orgID, rows)
	if err != nil {
		return nil, err
	}

	out := make([]Cost, len(rows))
	for i, row := range rows {
		name, ok := names[row.CreatedBy]
		if !ok {
			name = unknownCreator
		}
		out[i] = toCost(row, name)
	}
	return out, nil
}

// GetCostSummaryByUser groups effective totals per creating user. The
// effective total prefers total_price_cents and falls back to
// quantity * unit_price_cents.
func (s *service) GetCostSummaryByUser(ctx context.Context, orgID uuid.UUID) ([]UserCostSummary, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}

	rows, err := s.repo.SummaryByUser(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize costs")
	}

	userIDs := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		userIDs[i] = row.CreatedBy
	}
	names, err := s.profiles.DisplayNames(ctx, orgID, userIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cost creators")
	}

	out := make([]UserCostSummary, len(rows))
	for i, row := range rows {
		name, ok := names[row.CreatedBy]
		if !ok {
			name = unknownCreator
		}
		out[i] = UserCostSummary{
			UserID:     row.CreatedBy,
			UserName:   name,
			TotalCents: row.TotalCents,
			CostCount:  row.CostCount,
		}
	}
	return out, nil
}

func (s *service) applyAdjustment(ctx context.Context, orgID, userID uuid.UUID, operation string, itemID uuid.UUID, delta int, workOrderID uuid.UUID) *InventoryAdjustment {
	adjustment := &InventoryAdjustment{InventoryItemID: itemID, Delta: delta}
	if delta == 0 {
		return nil
	}

	_, err := s.inventory.AdjustQuantity(ctx, orgID, userID, inventory.AdjustQuantityInput{
		ItemID:      itemID,
		Delta:       delta,
		Type:        enums.TransactionTypeWorkOrder,
		WorkOrderID: &workOrderID,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncCompensationFailure(operation)
		}
		s.logg.Error(s.logg.WithItemID(ctx, itemID.String()), "compensating inventory adjustment failed", err)
		return adjustment
	}
	adjustment.Applied = true
	return adjustment
}

func (s *service) resolveNames(ctx context.Context, orgID uuid.UUID, rows []models.WorkOrderCost) (map[uuid.UUID]string, error) {
	userIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]struct{}{}
	for _, row := range rows {
		if _, ok := seen[row.CreatedBy]; !ok {
			seen[row.CreatedBy] = struct{}{}
			userIDs = append(userIDs, row.CreatedBy)
		}
	}
	names, err := s.profiles.DisplayNames(ctx, orgID, userIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cost creators")
	}
	return names, nil
}

func (s *service) creatorName(ctx context.Context, orgID, userID uuid.UUID) string {
	names, err := s.profiles.DisplayNames(ctx, orgID, []uuid.UUID{userID})
	if err != nil {
		return unknownCreator
	}
	if name, ok := names[userID]; ok {
		return name
	}
	return unknownCreator
}
