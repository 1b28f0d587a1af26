package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/equipqr/equipqr-backend/api/responses"
	"github.com/equipqr/equipqr-backend/api/validators"
	compatsvc "github.com/equipqr/equipqr-backend/internal/compat"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
)

// CompatibleParts returns the deduplicated, ranked parts list for the
// equipment units named in the comma-separated equipment_ids query parameter.
func CompatibleParts(svc compatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "compatibility service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		equipmentIDs, err := parseEquipmentIDs(r.URL.Query().Get("equipment_ids"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.GetCompatibleItems(r.Context(), orgID, equipmentIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// CompatAddLink records a direct equipment-to-item compatibility edge.
func CompatAddLink(svc compatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "compatibility service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addLinkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		equipmentID, err := uuid.Parse(payload.EquipmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid equipment id"))
			return
		}
		itemID, err := uuid.Parse(payload.InventoryItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory item id"))
			return
		}

		if err := svc.AddDirectLink(r.Context(), orgID, equipmentID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "linked"})
	}
}

// CompatAddRule records a manufacturer/model pattern rule. A missing model
// matches every model of the manufacturer.
func CompatAddRule(svc compatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "compatibility service unavailable"))
			return
		}

		userID, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addRuleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuid.Parse(payload.InventoryItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory item id"))
			return
		}

		input := compatsvc.AddRuleInput{
			InventoryItemID: itemID,
			Manufacturer:    validators.SanitizeString(payload.Manufacturer, 255),
			Model:           payload.Model,
		}

		if err := svc.AddRule(r.Context(), orgID, userID, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "created"})
	}
}

func parseEquipmentIDs(raw string) ([]uuid.UUID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid equipment id").WithDetails(map[string]any{"value": part})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type addLinkRequest struct {
	EquipmentID     string `json:"equipment_id" validate:"required"`
	InventoryItemID string `json:"inventory_item_id" validate:"required"`
}

type addRuleRequest struct {
	InventoryItemID string  `json:"inventory_item_id" validate:"required"`
	Manufacturer    string  `json:"manufacturer" validate:"required,max=255"`
	Model           *string `json:"model,omitempty" validate:"omitempty,max=255"`
}
