package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/equipqr/equipqr-backend/api/responses"
	"github.com/equipqr/equipqr-backend/api/validators"
	qbsvc "github.com/equipqr/equipqr-backend/internal/quickbooks"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
)

// QuickBooksConnect starts the OAuth flow and returns the Intuit
// authorization URL the frontend should send the user to.
func QuickBooksConnect(svc qbsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quickbooks service unavailable"))
			return
		}

		userID, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The body is optional; an empty POST starts a flow that lands on
		// the default frontend redirect.
		var payload connectRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		session, err := svc.CreateConnectSession(r.Context(), orgID, userID, payload.RedirectURL, payload.OriginURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// QuickBooksCallback terminates the OAuth flow. It is unauthenticated; the
// single-use session and nonce inside the state parameter carry the identity.
// The browser is always redirected somewhere safe, success or not.
func QuickBooksCallback(svc qbsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quickbooks service unavailable"))
			return
		}

		query := r.URL.Query()
		input := qbsvc.CallbackInput{
			Code:       query.Get("code"),
			State:      query.Get("state"),
			RealmID:    query.Get("realmId"),
			ErrorParam: query.Get("error"),
		}

		target, err := svc.HandleCallback(r.Context(), input)
		if err != nil && logg != nil {
			logg.Error(r.Context(), "quickbooks callback rejected", err)
		}

		http.Redirect(w, r, target, http.StatusFound)
	}
}

func QuickBooksStatus(svc qbsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quickbooks service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GetStatus(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

func QuickBooksDisconnect(svc qbsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quickbooks service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Disconnect(r.Context(), orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "disconnected"})
	}
}

// QuickBooksExport turns a work order's costs into a QuickBooks invoice,
// refreshing the stored token first if it is near expiry.
func QuickBooksExport(svc qbsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quickbooks service unavailable"))
			return
		}

		_, orgID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload exportInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		workOrderID, err := uuid.Parse(payload.WorkOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid work order id"))
			return
		}

		result, err := svc.ExportInvoice(r.Context(), orgID, qbsvc.ExportInvoiceInput{
			WorkOrderID: workOrderID,
			CustomerRef: strings.TrimSpace(payload.CustomerRef),
			DocNumber:   strings.TrimSpace(payload.DocNumber),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type connectRequest struct {
	RedirectURL *string `json:"redirect_url,omitempty" validate:"omitempty,max=2048"`
	OriginURL   *string `json:"origin_url,omitempty" validate:"omitempty,max=2048"`
}

type exportInvoiceRequest struct {
	WorkOrderID string `json:"work_order_id" validate:"required"`
	CustomerRef string `json:"customer_ref" validate:"required"`
	DocNumber   string `json:"doc_number,omitempty" validate:"omitempty,max=21"`
}
