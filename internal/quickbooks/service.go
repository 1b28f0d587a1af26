package quickbooks

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/db/models"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	qbclient "github.com/equipqr/equipqr-backend/pkg/quickbooks"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	callbackPath = "/api/v1/quickbooks/callback"

	// stateWindow bounds how long a state value stays valid after the
	// connect flow starts.
	stateWindow = time.Hour

	// futureSkew tolerates small clock drift between servers when checking
	// that a state timestamp is not from the future.
	futureSkew = time.Minute

	// refreshThreshold triggers a token refresh when the access token has
	// less than this long to live.
	refreshThreshold = 5 * time.Minute
)

type intuitClient interface {
	AuthorizationURL(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*qbclient.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*qbclient.TokenResponse, error)
	CreateInvoice(ctx context.Context, accessToken, realmID string, invoice qbclient.Invoice) (*qbclient.InvoiceResult, error)
}

type costsReader interface {
	FindWorkOrder(ctx context.Context, orgID, workOrderID uuid.UUID) (*models.WorkOrder, error)
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]models.WorkOrderCost, error)
}

type refreshMetrics interface {
	IncQuickBooksRefresh(outcome string)
}

// Service owns the QuickBooks connection lifecycle: starting the OAuth flow,
// validating callbacks, keeping tokens fresh, and exporting invoices.
type Service interface {
	CreateConnectSession(ctx context.Context, orgID, userID uuid.UUID, redirectURL, originURL *string) (*ConnectSession, error)
	HandleCallback(ctx context.Context, input CallbackInput) (string, error)
	GetStatus(ctx context.Context, orgID uuid.UUID) (*ConnectionStatus, error)
	Disconnect(ctx context.Context, orgID uuid.UUID) error
	EnsureFreshToken(ctx context.Context, orgID uuid.UUID) (*models.QuickBooksCredential, error)
	ExportInvoice(ctx context.Context, orgID uuid.UUID, input ExportInvoiceInput) (*ExportResult, error)
}

type service struct {
	repo    Repository
	intuit  intuitClient
	costs   costsReader
	metrics refreshMetrics
	cfg     config.QuickBooksConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the QuickBooks lifecycle service.
func NewService(repo Repository, intuit intuitClient, costs costsReader, metrics refreshMetrics, cfg config.QuickBooksConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("quickbooks repository required")
	}
	if intuit == nil {
		return nil, fmt.Errorf("intuit client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		intuit:  intuit,
		costs:   costs,
		metrics: metrics,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// CreateConnectSession opens a connect flow: a single-use server-side session
// plus the Intuit consent URL whose state parameter binds back to it.
func (s *service) CreateConnectSession(ctx context.Context, orgID, userID uuid.UUID, redirectURL, originURL *string) (*ConnectSession, error) {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and user identities are required")
	}

	sessionToken, err := newOpaqueToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate session token")
	}
	nonce, err := newOpaqueToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate nonce")
	}

	session := &models.QuickBooksOAuthSession{
		ID:             uuid.New(),
		SessionToken:   sessionToken,
		Nonce:          nonce,
		OrganizationID: orgID,
		UserID:         userID,
		RedirectURL:    redirectURL,
		OriginURL:      originURL,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store oauth session")
	}

	issuedAt := s.now()
	state, err := encodeState(connectState{
		SessionToken: sessionToken,
		Nonce:        nonce,
		Timestamp:    issuedAt.Unix(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode state")
	}

	return &ConnectSession{
		AuthorizationURL: s.intuit.AuthorizationURL(state, s.redirectURI()),
		SessionToken:     sessionToken,
		ExpiresAt:        issuedAt.Add(stateWindow),
	}, nil
}

// HandleCallback validates the returning OAuth redirect and stores the
// company credentials. It always returns a safe URL to send the browser to;
// the error reports why a connection was not established.
func (s *service) HandleCallback(ctx context.Context, input CallbackInput) (string, error) {
	fallback := validateRedirectTarget(s.cfg, "")

	if input.ErrorParam != "" {
		return s.errorRedirect(fallback, "authorization_declined", "QuickBooks authorization was declined"),
			pkgerrors.New(pkgerrors.CodeUnauthorized, "quickbooks authorization declined")
	}

	// Presence comes first so a malformed-but-honest callback does not burn
	// the single-use session.
	if strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.RealmID) == "" {
		return s.errorRedirect(fallback, "missing_parameters", "authorization code or realm id missing"),
			pkgerrors.New(pkgerrors.CodeValidation, "authorization code and realm id are required")
	}

	state, err := decodeState(input.State)
	if err != nil {
		return s.errorRedirect(fallback, "invalid_state", "state parameter could not be verified"),
			pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth state is malformed")
	}

	now := s.now()
	issued := time.Unix(state.Timestamp, 0)
	if issued.After(now.Add(futureSkew)) {
		return s.errorRedirect(fallback, "invalid_state", "state parameter could not be verified"),
			pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth state timestamp is in the future")
	}
	if now.Sub(issued) > stateWindow {
		return s.errorRedirect(fallback, "session_expired", "connect session expired, please try again"),
			pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth state has expired")
	}

	session, err := s.repo.ConsumeSession(ctx, state.SessionToken, now.Add(-stateWindow))
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionUsed):
			return s.errorRedirect(fallback, "session_replayed", "connect session already used"),
				pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth session already used")
		case errors.Is(err, ErrSessionExpired):
			return s.errorRedirect(fallback, "session_expired", "connect session expired, please try again"),
				pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth session has expired")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return s.errorRedirect(fallback, "session_unknown", "connect session not found"),
				pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth session not found")
		default:
			return s.errorRedirect(fallback, "internal_error", "something went wrong, please try again"),
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume oauth session")
		}
	}

	if subtle.ConstantTimeCompare([]byte(session.Nonce), []byte(state.Nonce)) != 1 {
		return s.errorRedirect(fallback, "nonce_mismatch", "state parameter could not be verified"),
			pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth nonce mismatch")
	}

	token, err := s.intuit.ExchangeCode(ctx, input.Code, s.redirectURI())
	if err != nil {
		return s.errorRedirect(fallback, "token_exchange_failed", "could not complete the QuickBooks connection"),
			pkgerrors.Wrap(pkgerrors.CodeDependency, err, "exchange authorization code")
	}

	credential := &models.QuickBooksCredential{
		ID:                    uuid.New(),
		OrganizationID:        session.OrganizationID,
		RealmID:               input.RealmID,
		AccessToken:           token.AccessToken,
		RefreshToken:          token.RefreshToken,
		AccessTokenExpiresAt:  now.Add(time.Duration(token.ExpiresIn) * time.Second),
		RefreshTokenExpiresAt: now.Add(time.Duration(token.XRefreshTokenExpiresIn) * time.Second),
		ConnectedBy:           session.UserID,
	}
	if err := s.repo.UpsertCredential(ctx, credential); err != nil {
		return s.errorRedirect(fallback, "internal_error", "something went wrong, please try again"),
			pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store credentials")
	}

	target := fallback
	if session.RedirectURL != nil {
		target = validateRedirectTarget(s.cfg, *session.RedirectURL)
	}
	return appendQuery(target, map[string]string{
		"qb_connected": "true",
		"realm_id":     input.RealmID,
	}), nil
}

// GetStatus reports whether the organization has stored credentials.
func (s *service) GetStatus(ctx context.Context, orgID uuid.UUID) (*ConnectionStatus, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}
	credential, err := s.repo.FindCredential(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ConnectionStatus{Connected: false}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credentials")
	}
	connectedAt := credential.CreatedAt
	connectedBy := credential.ConnectedBy
	return &ConnectionStatus{
		Connected:   true,
		RealmID:     credential.RealmID,
		ConnectedBy: &connectedBy,
		ConnectedAt: &connectedAt,
	}, nil
}

// Disconnect removes the organization's stored credentials.
func (s *service) Disconnect(ctx context.Context, orgID uuid.UUID) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}
	if err := s.repo.DeleteCredential(ctx, orgID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete credentials")
	}
	return nil
}

// EnsureFreshToken returns credentials whose access token is good for at
// least the refresh threshold, refreshing through Intuit when it is not.
func (s *service) EnsureFreshToken(ctx context.Context, orgID uuid.UUID) (*models.QuickBooksCredential, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}

	credential, err := s.repo.FindCredential(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quickbooks is not connected")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credentials")
	}

	now := s.now()
	if credential.AccessTokenExpiresAt.After(now.Add(refreshThreshold)) {
		return credential, nil
	}

	if !credential.RefreshTokenExpiresAt.After(now) {
		s.recordRefresh("failure")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized,
			"quickbooks connection has expired, please reconnect")
	}

	token, err := s.intuit.RefreshToken(ctx, credential.RefreshToken)
	if err != nil {
		s.recordRefresh("failure")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh access token")
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = credential.RefreshToken
	}
	accessExpiresAt := now.Add(time.Duration(token.ExpiresIn) * time.Second)
	refreshExpiresAt := credential.RefreshTokenExpiresAt
	if token.XRefreshTokenExpiresIn > 0 {
		refreshExpiresAt = now.Add(time.Duration(token.XRefreshTokenExpiresIn) * time.Second)
	}

	err = s.repo.UpdateCredentialTokens(ctx, credential.ID, token.AccessToken, refreshToken, accessExpiresAt, refreshExpiresAt)
	if err != nil {
		s.recordRefresh("failure")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refreshed tokens")
	}
	s.recordRefresh("success")

	credential.AccessToken = token.AccessToken
	credential.RefreshToken = refreshToken
	credential.AccessTokenExpiresAt = accessExpiresAt
	credential.RefreshTokenExpiresAt = refreshExpiresAt
	return credential, nil
}

// ExportInvoice turns a work order's cost lines into a QuickBooks invoice.
func (s *service) ExportInvoice(ctx context.Context, orgID uuid.UUID, input ExportInvoiceInput) (*ExportResult, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization identity missing")
	}
	if input.WorkOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work_order_id is required")
	}
	if s.costs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "costs reader not configured")
	}

	if _, err := s.costs.FindWorkOrder(ctx, orgID, input.WorkOrderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "work order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load work order")
	}

	costs, err := s.costs.ListByWorkOrder(ctx, input.WorkOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list work order costs")
	}
	if len(costs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work order has no costs to export")
	}

	credential, err := s.EnsureFreshToken(ctx, orgID)
	if err != nil {
		return nil, err
	}

	lines := make([]qbclient.InvoiceLine, len(costs))
	for i, cost := range costs {
		lines[i] = qbclient.InvoiceLine{
			Description: cost.Description,
			AmountCents: cost.EffectiveTotalCents(),
			Quantity:    cost.Quantity,
		}
	}

	invoice, err := s.intuit.CreateInvoice(ctx, credential.AccessToken, credential.RealmID, qbclient.Invoice{
		CustomerRef: input.CustomerRef,
		DocNumber:   input.DocNumber,
		Lines:       lines,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}

	return &ExportResult{
		Success:       true,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.DocNumber,
		IsUpdate:      false,
		Message:       fmt.Sprintf("invoice created with %d lines", len(lines)),
	}, nil
}

func (s *service) redirectURI() string {
	return s.cfg.RedirectBaseURL() + callbackPath
}

func (s *service) errorRedirect(target, code, description string) string {
	return appendQuery(target, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func (s *service) recordRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.IncQuickBooksRefresh(outcome)
	}
}

func encodeState(state connectState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeState(value string) (*connectState, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("state is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(value)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	var state connectState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if state.SessionToken == "" || state.Nonce == "" || state.Timestamp == 0 {
		return nil, errors.New("state is incomplete")
	}
	return &state, nil
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
