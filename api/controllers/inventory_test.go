package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/equipqr/equipqr-backend/api/middleware"
	inventorysvc "github.com/equipqr/equipqr-backend/internal/inventory"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/pagination"
)

type stubInventory struct {
	adjustCalls int
	lastInput   inventorysvc.AdjustQuantityInput
	adjustErr   error
	created     *inventorysvc.CreateItemInput
}

func (s *stubInventory) CreateItem(ctx context.Context, orgID, userID uuid.UUID, input inventorysvc.CreateItemInput) (*inventorysvc.Item, error) {
	s.created = &input
	return &inventorysvc.Item{ID: uuid.New(), OrganizationID: orgID, Name: input.Name, QuantityOnHand: input.InitialQuantity}, nil
}

func (s *stubInventory) GetItem(ctx context.Context, orgID, itemID uuid.UUID) (*inventorysvc.Item, error) {
	return &inventorysvc.Item{ID: itemID, OrganizationID: orgID}, nil
}

func (s *stubInventory) UpdateItem(ctx context.Context, orgID, itemID uuid.UUID, input inventorysvc.UpdateItemInput) (*inventorysvc.Item, error) {
	return &inventorysvc.Item{ID: itemID, OrganizationID: orgID}, nil
}

func (s *stubInventory) DeleteItem(ctx context.Context, orgID, itemID uuid.UUID) error {
	return nil
}

func (s *stubInventory) ListItems(ctx context.Context, orgID uuid.UUID, filters inventorysvc.ListFilters) (*pagination.Page[inventorysvc.Item], error) {
	page := pagination.NewPage([]inventorysvc.Item{}, 0, pagination.Params{Page: filters.Page, Limit: filters.Limit})
	return &page, nil
}

func (s *stubInventory) AdjustQuantity(ctx context.Context, orgID, userID uuid.UUID, input inventorysvc.AdjustQuantityInput) (int, error) {
	s.adjustCalls++
	s.lastInput = input
	if s.adjustErr != nil {
		return 0, s.adjustErr
	}
	return 10 + input.Delta, nil
}

func (s *stubInventory) ListTransactions(ctx context.Context, orgID uuid.UUID, itemID *uuid.UUID, params pagination.Params) (*pagination.Page[inventorysvc.Transaction], error) {
	page := pagination.NewPage([]inventorysvc.Transaction{}, 0, params)
	return &page, nil
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithOrgID(ctx, uuid.NewString())
	return req.WithContext(ctx)
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code
}

func TestInventoryAdjustForwardsDelta(t *testing.T) {
	svc := &stubInventory{}
	itemID := uuid.New()

	req := authedRequest(http.MethodPost, "/api/v1/inventory/items/"+itemID.String()+"/adjust",
		`{"delta":-3,"transaction_type":"adjustment","notes":"broken part"}`)
	req = withRouteParam(req, "itemId", itemID.String())

	resp := httptest.NewRecorder()
	InventoryAdjust(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.adjustCalls != 1 {
		t.Fatalf("expected one adjust call, got %d", svc.adjustCalls)
	}
	if svc.lastInput.Delta != -3 || svc.lastInput.ItemID != itemID {
		t.Fatalf("input not forwarded: %+v", svc.lastInput)
	}
	if svc.lastInput.Notes == nil || *svc.lastInput.Notes != "broken part" {
		t.Fatalf("notes not forwarded: %+v", svc.lastInput.Notes)
	}

	var envelope struct {
		Data struct {
			NewQuantity int `json:"new_quantity"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.NewQuantity != 7 {
		t.Fatalf("expected new quantity 7, got %d", envelope.Data.NewQuantity)
	}
}

func TestInventoryAdjustRejectsUnknownTransactionType(t *testing.T) {
	svc := &stubInventory{}
	itemID := uuid.New()

	req := authedRequest(http.MethodPost, "/api/v1/inventory/items/"+itemID.String()+"/adjust",
		`{"delta":1,"transaction_type":"teleport"}`)
	req = withRouteParam(req, "itemId", itemID.String())

	resp := httptest.NewRecorder()
	InventoryAdjust(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.adjustCalls != 0 {
		t.Fatal("service should not be called for an invalid type")
	}
	if code := decodeErrorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %s", code)
	}
}

func TestInventoryAdjustSurfacesInsufficientStock(t *testing.T) {
	svc := &stubInventory{adjustErr: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")}
	itemID := uuid.New()

	req := authedRequest(http.MethodPost, "/api/v1/inventory/items/"+itemID.String()+"/adjust",
		`{"delta":-500,"transaction_type":"adjustment"}`)
	req = withRouteParam(req, "itemId", itemID.String())

	resp := httptest.NewRecorder()
	InventoryAdjust(svc, nil)(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestInventoryCreateParsesUnitCost(t *testing.T) {
	svc := &stubInventory{}

	req := authedRequest(http.MethodPost, "/api/v1/inventory/items",
		`{"name":"Hydraulic Filter","initial_quantity":4,"low_stock_threshold":2,"default_unit_cost":"12.50"}`)

	resp := httptest.NewRecorder()
	InventoryCreate(svc, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created == nil {
		t.Fatal("create input not forwarded")
	}
	if !svc.created.DefaultUnitCost.Valid || svc.created.DefaultUnitCost.Decimal.String() != "12.5" {
		t.Fatalf("unit cost not parsed: %+v", svc.created.DefaultUnitCost)
	}
	if svc.created.InitialQuantity != 4 {
		t.Fatalf("initial quantity not forwarded: %d", svc.created.InitialQuantity)
	}
}

func TestInventoryCreateRequiresName(t *testing.T) {
	svc := &stubInventory{}

	req := authedRequest(http.MethodPost, "/api/v1/inventory/items", `{"initial_quantity":4}`)
	resp := httptest.NewRecorder()
	InventoryCreate(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.created != nil {
		t.Fatal("service should not be called without a name")
	}
}

func TestInventoryGetRejectsMalformedID(t *testing.T) {
	svc := &stubInventory{}

	req := authedRequest(http.MethodGet, "/api/v1/inventory/items/not-a-uuid", "")
	req = withRouteParam(req, "itemId", "not-a-uuid")

	resp := httptest.NewRecorder()
	InventoryGet(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
