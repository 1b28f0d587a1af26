package costs

import (
	"context"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes cost line-item persistence. Costs carry no organization
// column; tenant scoping goes through the owning work order on every query.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, cost *models.WorkOrderCost) (*models.WorkOrderCost, error)
	FindByID(ctx context.Context, orgID, costID uuid.UUID) (*models.WorkOrderCost, error)
	UpdateFields(ctx context.Context, costID uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, costID uuid.UUID) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]models.WorkOrderCost, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.WorkOrderCost, error)
	FindWorkOrder(ctx context.Context, orgID, workOrderID uuid.UUID) (*models.WorkOrder, error)
	SummaryByUser(ctx context.Context, orgID uuid.UUID) ([]userSummaryRow, error)
}

type userSummaryRow struct {
	CreatedBy  uuid.UUID
	TotalCents int64
	CostCount  int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a costs repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cost *models.WorkOrderCost) (*models.WorkOrderCost, error) {
	if err := r.db.WithContext(ctx).Create(cost).Error; err != nil {
		return nil, err
	}
	return cost, nil
}

func (r *repository) FindByID(ctx context.Context, orgID, costID uuid.UUID) (*models.WorkOrderCost, error) {
	var row models.WorkOrderCost
	err := r.db.WithContext(ctx).
		Joins("JOIN work_orders ON work_orders.id = work_order_costs.work_order_id").
		Where("work_order_costs.id = ? AND work_orders.organization_id = ?", costID, orgID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateFields(ctx context.Context, costID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.WorkOrderCost{}).
		Where("id = ?", costID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, costID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", costID).
		Delete(&models.WorkOrderCost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]models.WorkOrderCost, error) {
	var rows []models.WorkOrderCost
	err := r.db.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.WorkOrderCost, error) {
	var rows []models.WorkOrderCost
	err := r.db.WithContext(ctx).
		Joins("JOIN work_orders ON work_orders.id = work_order_costs.work_order_id").
		Where("work_orders.organization_id = ?", orgID).
		Order("work_order_costs.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindWorkOrder(ctx context.Context, orgID, workOrderID uuid.UUID) (*models.WorkOrder, error) {
	var row models.WorkOrder
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", workOrderID, orgID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) SummaryByUser(ctx context.Context, orgID uuid.UUID) ([]userSummaryRow, error) {
	var rows []userSummaryRow
	err := r.db.WithContext(ctx).
		Model(&models.WorkOrderCost{}).
		Select(
			"work_order_costs.created_by AS created_by, " +
				"SUM(COALESCE(work_order_costs.total_price_cents, work_order_costs.quantity * work_order_costs.unit_price_cents)) AS total_cents, " +
				"COUNT(*) AS cost_count",
		).
		Joins("JOIN work_orders ON work_orders.id = work_order_costs.work_order_id").
		Where("work_orders.organization_id = ?", orgID).
		Group("work_order_costs.created_by").
		Order("total_cents DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
