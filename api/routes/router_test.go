package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	compatsvc "github.com/equipqr/equipqr-backend/internal/compat"
	inventorysvc "github.com/equipqr/equipqr-backend/internal/inventory"
	qbsvc "github.com/equipqr/equipqr-backend/internal/quickbooks"
	pkgauth "github.com/equipqr/equipqr-backend/pkg/auth"
	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/equipqr/equipqr-backend/pkg/enums"
	"github.com/equipqr/equipqr-backend/pkg/pagination"
)

type stubInventoryService struct {
	listCalls int
	lastOrg   uuid.UUID
}

func (s *stubInventoryService) CreateItem(ctx context.Context, orgID, userID uuid.UUID, input inventorysvc.CreateItemInput) (*inventorysvc.Item, error) {
	return &inventorysvc.Item{ID: uuid.New(), OrganizationID: orgID, Name: input.Name}, nil
}

func (s *stubInventoryService) GetItem(ctx context.Context, orgID, itemID uuid.UUID) (*inventorysvc.Item, error) {
	return &inventorysvc.Item{ID: itemID, OrganizationID: orgID}, nil
}

func (s *stubInventoryService) UpdateItem(ctx context.Context, orgID, itemID uuid.UUID, input inventorysvc.UpdateItemInput) (*inventorysvc.Item, error) {
	return &inventorysvc.Item{ID: itemID, OrganizationID: orgID}, nil
}

func (s *stubInventoryService) DeleteItem(ctx context.Context, orgID, itemID uuid.UUID) error {
	return nil
}

func (s *stubInventoryService) ListItems(ctx context.Context, orgID uuid.UUID, filters inventorysvc.ListFilters) (*pagination.Page[inventorysvc.Item], error) {
	s.listCalls++
	s.lastOrg = orgID
	page := pagination.NewPage([]inventorysvc.Item{}, 0, pagination.Params{Page: filters.Page, Limit: filters.Limit})
	return &page, nil
}

func (s *stubInventoryService) AdjustQuantity(ctx context.Context, orgID, userID uuid.UUID, input inventorysvc.AdjustQuantityInput) (int, error) {
	return input.Delta, nil
}

func (s *stubInventoryService) ListTransactions(ctx context.Context, orgID uuid.UUID, itemID *uuid.UUID, params pagination.Params) (*pagination.Page[inventorysvc.Transaction], error) {
	page := pagination.NewPage([]inventorysvc.Transaction{}, 0, params)
	return &page, nil
}

type stubQuickBooksService struct {
	callbackCalls int
	lastState     string
}

func (s *stubQuickBooksService) CreateConnectSession(ctx context.Context, orgID, userID uuid.UUID, redirectURL, originURL *string) (*qbsvc.ConnectSession, error) {
	return &qbsvc.ConnectSession{AuthorizationURL: "https://example.test/authorize", SessionToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubQuickBooksService) HandleCallback(ctx context.Context, input qbsvc.CallbackInput) (string, error) {
	s.callbackCalls++
	s.lastState = input.State
	return "https://app.equipqr.app?qb_connected=true", nil
}

func (s *stubQuickBooksService) GetStatus(ctx context.Context, orgID uuid.UUID) (*qbsvc.ConnectionStatus, error) {
	return &qbsvc.ConnectionStatus{Connected: false}, nil
}

func (s *stubQuickBooksService) Disconnect(ctx context.Context, orgID uuid.UUID) error {
	return nil
}

func (s *stubQuickBooksService) EnsureFreshToken(ctx context.Context, orgID uuid.UUID) (*models.QuickBooksCredential, error) {
	return nil, nil
}

func (s *stubQuickBooksService) ExportInvoice(ctx context.Context, orgID uuid.UUID, input qbsvc.ExportInvoiceInput) (*qbsvc.ExportResult, error) {
	return &qbsvc.ExportResult{Success: true, InvoiceID: "1"}, nil
}

type stubCompatService struct{}

func (s *stubCompatService) GetCompatibleItems(ctx context.Context, orgID uuid.UUID, equipmentIDs []uuid.UUID) ([]compatsvc.CompatibleItem, error) {
	return []compatsvc.CompatibleItem{}, nil
}

func (s *stubCompatService) AddDirectLink(ctx context.Context, orgID, equipmentID, itemID uuid.UUID) error {
	return nil
}

func (s *stubCompatService) AddRule(ctx context.Context, orgID, userID uuid.UUID, input compatsvc.AddRuleInput) error {
	return nil
}

type allowAllSessions struct {
	revoked []string
}

func (s *allowAllSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (s *allowAllSessions) Rotate(ctx context.Context, oldAccessID, refreshToken string) (string, string, error) {
	return "rotated-jti", "rotated-refresh", nil
}

func (s *allowAllSessions) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubMembers struct {
	allowed bool
}

func (s *stubMembers) UserHasRole(ctx context.Context, userID, orgID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	return s.allowed, nil
}

func routerTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "equipqr"
	cfg.JWT.ExpirationMinutes = 15
	return cfg
}

func bearerFor(t *testing.T, cfg *config.Config, orgID uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:      uuid.New(),
		ActiveOrgID: &orgID,
		Role:        enums.MemberRoleManager,
		JTI:         uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func newTestRouter(inv *stubInventoryService, qb *stubQuickBooksService, members *stubMembers) (http.Handler, *config.Config) {
	cfg := routerTestConfig()
	sessions := &allowAllSessions{}
	handler := NewRouter(cfg, nil, Dependencies{
		Sessions:         sessions,
		SessionLifecycle: sessions,
		Members:          members,
	}, Services{
		Inventory:  inv,
		Compat:     &stubCompatService{},
		QuickBooks: qb,
	})
	return handler, cfg
}

func TestHealthLive(t *testing.T) {
	handler, _ := newTestRouter(&stubInventoryService{}, &stubQuickBooksService{}, &stubMembers{allowed: true})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-EquipQR-Env") != "test" {
		t.Fatalf("expected environment header, got %q", resp.Header().Get("X-EquipQR-Env"))
	}
}

func TestPublicPingNeedsNoAuth(t *testing.T) {
	handler, _ := newTestRouter(&stubInventoryService{}, &stubQuickBooksService{}, &stubMembers{allowed: true})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/ping", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	handler, _ := newTestRouter(&stubInventoryService{}, &stubQuickBooksService{}, &stubMembers{allowed: true})

	paths := []string{
		"/api/v1/inventory/items",
		"/api/v1/costs",
		"/api/v1/quickbooks/status",
	}
	for _, path := range paths {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, resp.Code)
		}
	}
}

func TestAuthorizedInventoryList(t *testing.T) {
	inv := &stubInventoryService{}
	handler, cfg := newTestRouter(inv, &stubQuickBooksService{}, &stubMembers{allowed: true})
	orgID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/items?page=2&limit=10", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, orgID))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if inv.listCalls != 1 {
		t.Fatalf("expected one service call, got %d", inv.listCalls)
	}
	if inv.lastOrg != orgID {
		t.Fatalf("expected org %s got %s", orgID, inv.lastOrg)
	}

	var envelope struct {
		Data pagination.Page[inventorysvc.Item] `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PageNumber != 2 || envelope.Data.Limit != 10 {
		t.Fatalf("pagination not forwarded: %+v", envelope.Data)
	}
}

func TestWriteRouteRequiresRole(t *testing.T) {
	inv := &stubInventoryService{}
	handler, cfg := newTestRouter(inv, &stubQuickBooksService{}, &stubMembers{allowed: false})
	orgID := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/inventory/items/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, orgID))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestLogoutRevokesBearerSession(t *testing.T) {
	handler, cfg := newTestRouter(&stubInventoryService{}, &stubQuickBooksService{}, &stubMembers{allowed: true})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestQuickBooksCallbackIsPublicAndRedirects(t *testing.T) {
	qb := &stubQuickBooksService{}
	handler, _ := newTestRouter(&stubInventoryService{}, qb, &stubMembers{allowed: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quickbooks/callback?code=abc&state=xyz&realmId=123", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", resp.Code)
	}
	if qb.callbackCalls != 1 {
		t.Fatalf("expected callback handled once, got %d", qb.callbackCalls)
	}
	if qb.lastState != "xyz" {
		t.Fatalf("state not forwarded, got %q", qb.lastState)
	}
	if loc := resp.Header().Get("Location"); loc != "https://app.equipqr.app?qb_connected=true" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}
