package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	compatsvc "github.com/equipqr/equipqr-backend/internal/compat"
)

type stubCompat struct {
	calls   int
	lastIDs []uuid.UUID
}

func (s *stubCompat) GetCompatibleItems(ctx context.Context, orgID uuid.UUID, equipmentIDs []uuid.UUID) ([]compatsvc.CompatibleItem, error) {
	s.calls++
	s.lastIDs = equipmentIDs
	return []compatsvc.CompatibleItem{}, nil
}

func (s *stubCompat) AddDirectLink(ctx context.Context, orgID, equipmentID, itemID uuid.UUID) error {
	return nil
}

func (s *stubCompat) AddRule(ctx context.Context, orgID, userID uuid.UUID, input compatsvc.AddRuleInput) error {
	return nil
}

func TestCompatiblePartsParsesQueryList(t *testing.T) {
	svc := &stubCompat{}
	a, b := uuid.New(), uuid.New()

	req := authedRequest(http.MethodGet, "/api/v1/compatibility/parts?equipment_ids="+a.String()+","+b.String(), "")
	resp := httptest.NewRecorder()
	CompatibleParts(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one service call, got %d", svc.calls)
	}
	if len(svc.lastIDs) != 2 || svc.lastIDs[0] != a || svc.lastIDs[1] != b {
		t.Fatalf("ids not forwarded: %v", svc.lastIDs)
	}
}

func TestCompatiblePartsEmptyQueryShortCircuits(t *testing.T) {
	svc := &stubCompat{}

	req := authedRequest(http.MethodGet, "/api/v1/compatibility/parts", "")
	resp := httptest.NewRecorder()
	CompatibleParts(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.lastIDs) != 0 {
		t.Fatalf("expected no ids, got %v", svc.lastIDs)
	}
}

func TestCompatiblePartsRejectsMalformedID(t *testing.T) {
	svc := &stubCompat{}

	req := authedRequest(http.MethodGet, "/api/v1/compatibility/parts?equipment_ids=not-a-uuid", "")
	resp := httptest.NewRecorder()
	CompatibleParts(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not be called")
	}
}
