package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/equipqr/equipqr-backend/api/responses"
	"github.com/equipqr/equipqr-backend/api/validators"
	inventorysvc "github.com/equipqr/equipqr-backend/internal/inventory"
	"github.com/equipqr/equipqr-backend/pkg/enums"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/equipqr/equipqr-backend/pkg/pagination"
)

// InventoryList returns a filtered, paginated item listing for the active
// organization.
func InventoryList(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := inventorysvc.ListFilters{
			Search:       strings.TrimSpace(r.URL.Query().Get("search")),
			Location:     strings.TrimSpace(r.URL.Query().Get("location")),
			LowStockOnly: r.URL.Query().Get("low_stock") == "true",
			Page:         page,
			Limit:        limit,
		}

		result, err := svc.ListItems(r.Context(), orgID, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// InventoryCreate adds an item. A non-zero initial quantity also writes the
// opening ledger transaction atomically with the insert.
func InventoryCreate(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		userID, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), orgID, userID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func InventoryGet(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), orgID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// InventoryUpdate applies a whitelist partial update. Quantity is not
// updatable here; only ledger adjustments move stock.
func InventoryUpdate(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), orgID, itemID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func InventoryDelete(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteItem(r.Context(), orgID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// InventoryAdjust applies a signed quantity delta and records the ledger row.
func InventoryAdjust(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		userID, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		newQuantity, err := svc.AdjustQuantity(r.Context(), orgID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"item_id":      itemID,
			"new_quantity": newQuantity,
		})
	}
}

// InventoryTransactions lists the audit trail, optionally scoped to one item
// via the item_id query parameter.
func InventoryTransactions(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var itemID *uuid.UUID
		if raw := routeParam(r, "itemId"); raw != "" {
			id, parseErr := pathUUID(r, "itemId")
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			itemID = &id
		} else if raw := strings.TrimSpace(r.URL.Query().Get("item_id")); raw != "" {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid item id"))
				return
			}
			itemID = &id
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListTransactions(r.Context(), orgID, itemID, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type createItemRequest struct {
	Name              string           `json:"name" validate:"required,max=255"`
	SKU               *string          `json:"sku,omitempty" validate:"omitempty,max=100"`
	ExternalID        *string          `json:"external_id,omitempty" validate:"omitempty,max=100"`
	Description       *string          `json:"description,omitempty"`
	Location          *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	InitialQuantity   int              `json:"initial_quantity" validate:"omitempty,min=0"`
	LowStockThreshold int              `json:"low_stock_threshold" validate:"omitempty,min=0"`
	DefaultUnitCost   *decimal.Decimal `json:"default_unit_cost,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

func (r createItemRequest) toInput() inventorysvc.CreateItemInput {
	input := inventorysvc.CreateItemInput{
		Name:              validators.SanitizeString(r.Name, 255),
		SKU:               r.SKU,
		ExternalID:        r.ExternalID,
		Description:       r.Description,
		Location:          r.Location,
		InitialQuantity:   r.InitialQuantity,
		LowStockThreshold: r.LowStockThreshold,
		ImageURL:          r.ImageURL,
	}
	if r.DefaultUnitCost != nil {
		input.DefaultUnitCost = decimal.NullDecimal{Decimal: *r.DefaultUnitCost, Valid: true}
	}
	return input
}

type updateItemRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	SKU               *string          `json:"sku,omitempty" validate:"omitempty,max=100"`
	ExternalID        *string          `json:"external_id,omitempty" validate:"omitempty,max=100"`
	Description       *string          `json:"description,omitempty"`
	Location          *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty" validate:"omitempty,min=0"`
	DefaultUnitCost   *decimal.Decimal `json:"default_unit_cost,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

func (r updateItemRequest) toInput() inventorysvc.UpdateItemInput {
	input := inventorysvc.UpdateItemInput{
		Name:              r.Name,
		SKU:               r.SKU,
		ExternalID:        r.ExternalID,
		Description:       r.Description,
		Location:          r.Location,
		LowStockThreshold: r.LowStockThreshold,
		ImageURL:          r.ImageURL,
	}
	if r.DefaultUnitCost != nil {
		input.DefaultUnitCost = &decimal.NullDecimal{Decimal: *r.DefaultUnitCost, Valid: true}
	}
	return input
}

type adjustQuantityRequest struct {
	Delta       int     `json:"delta"`
	Type        string  `json:"transaction_type" validate:"required"`
	Notes       *string `json:"notes,omitempty"`
	WorkOrderID *string `json:"work_order_id,omitempty"`
}

func (r adjustQuantityRequest) toInput(itemID uuid.UUID) (inventorysvc.AdjustQuantityInput, error) {
	txType, err := enums.ParseTransactionType(strings.TrimSpace(r.Type))
	if err != nil {
		return inventorysvc.AdjustQuantityInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type")
	}

	input := inventorysvc.AdjustQuantityInput{
		ItemID: itemID,
		Delta:  r.Delta,
		Type:   txType,
		Notes:  r.Notes,
	}
	if r.WorkOrderID != nil && strings.TrimSpace(*r.WorkOrderID) != "" {
		id, parseErr := uuid.Parse(*r.WorkOrderID)
		if parseErr != nil {
			return inventorysvc.AdjustQuantityInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid work order id")
		}
		input.WorkOrderID = &id
	}
	return input, nil
}
