package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/equipqr/equipqr-backend/api/responses"
	"github.com/equipqr/equipqr-backend/api/validators"
	costsvc "github.com/equipqr/equipqr-backend/internal/costs"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
)

// CostCreate adds a line item to a work order. Inventory-linked costs also
// deduct the consumed quantity from stock.
func CostCreate(svc costsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cost service unavailable"))
			return
		}

		userID, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		workOrderID, err := pathUUID(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createCostRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(workOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCost(r.Context(), orgID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CostUpdate patches a cost and, when the quantity of an inventory-linked
// cost changes, reports the compensating stock adjustment alongside.
func CostUpdate(svc costsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cost service unavailable"))
			return
		}

		userID, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		costID, err := pathUUID(r, "costId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCostRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateCostWithQuantityTracking(r.Context(), orgID, userID, costID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CostDelete removes a cost; inventory-linked costs restore the consumed
// quantity to stock.
func CostDelete(svc costsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cost service unavailable"))
			return
		}

		userID, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		costID, err := pathUUID(r, "costId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.DeleteCostWithInventoryInfo(r.Context(), orgID, userID, costID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{"status": "deleted"}
		if adjustment != nil {
			payload["inventory_adjustment"] = adjustment
		}
		responses.WriteSuccess(w, payload)
	}
}

// CostListForWorkOrder lists a work order's costs with creator names resolved.
func CostListForWorkOrder(svc costsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cost service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		workOrderID, err := pathUUID(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		costs, err := svc.GetAllCostsWithCreators(r.Context(), orgID, &workOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, costs)
	}
}

// CostList lists every cost in the organization, optionally filtered by the
// work_order_id query parameter.
func CostList(svc costsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cost service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var workOrderID *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("work_order_id")); raw != "" {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid work order id"))
				return
			}
			workOrderID = &id
		}

		costs, err := svc.GetAllCostsWithCreators(r.Context(), orgID, workOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, costs)
	}
}

// CostSummary aggregates spend per creating user across the organization.
func CostSummary(svc costsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cost service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetCostSummaryByUser(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

type createCostRequest struct {
	Description     string  `json:"description" validate:"required,max=500"`
	Quantity        int     `json:"quantity" validate:"required,min=1"`
	UnitPriceCents  int64   `json:"unit_price_cents" validate:"omitempty,min=0"`
	TotalPriceCents *int64  `json:"total_price_cents,omitempty" validate:"omitempty,min=0"`
	InventoryItemID *string `json:"inventory_item_id,omitempty"`
}

func (r createCostRequest) toInput(workOrderID uuid.UUID) (costsvc.CreateCostInput, error) {
	input := costsvc.CreateCostInput{
		WorkOrderID:     workOrderID,
		Description:     validators.SanitizeString(r.Description, 500),
		Quantity:        r.Quantity,
		UnitPriceCents:  r.UnitPriceCents,
		TotalPriceCents: r.TotalPriceCents,
	}
	if r.InventoryItemID != nil && strings.TrimSpace(*r.InventoryItemID) != "" {
		id, err := uuid.Parse(*r.InventoryItemID)
		if err != nil {
			return costsvc.CreateCostInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory item id")
		}
		input.InventoryItemID = &id
	}
	return input, nil
}

type updateCostRequest struct {
	Description     *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Quantity        *int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	UnitPriceCents  *int64  `json:"unit_price_cents,omitempty" validate:"omitempty,min=0"`
	TotalPriceCents *int64  `json:"total_price_cents,omitempty" validate:"omitempty,min=0"`
}

func (r updateCostRequest) toInput() costsvc.UpdateCostInput {
	return costsvc.UpdateCostInput{
		Description:     r.Description,
		Quantity:        r.Quantity,
		UnitPriceCents:  r.UnitPriceCents,
		TotalPriceCents: r.TotalPriceCents,
	}
}
