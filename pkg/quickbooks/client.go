package quickbooks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/logger"
)

const (
	authorizeEndpoint = "https://appcenter.intuit.com/connect/oauth2"
	tokenEndpoint     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	sandboxAPIBase    = "https://sandbox-quickbooks.api.intuit.com"
	productionAPIBase = "https://quickbooks.api.intuit.com"

	accountingScope = "com.intuit.quickbooks.accounting"
)

var (
	errClientIDRequired     = errors.New("quickbooks client id is required")
	errClientSecretRequired = errors.New("quickbooks client secret is required")
	errLoggerRequired       = errors.New("quickbooks logger is required")
)

// TokenResponse is Intuit's bearer-token grant payload.
type TokenResponse struct {
	AccessToken            string `json:"access_token"`
	RefreshToken           string `json:"refresh_token"`
	TokenType              string `json:"token_type"`
	ExpiresIn              int64  `json:"expires_in"`
	XRefreshTokenExpiresIn int64  `json:"x_refresh_token_expires_in"`
}

// Client wraps the Intuit OAuth and accounting APIs with centralized auth and
// error mapping.
type Client struct {
	httpClient    *http.Client
	clientID      string
	clientSecret  string
	authorizeURL  string
	tokenURL      string
	apiBase       string
	logger        *logger.Logger
}

// NewClient validates the credentials and selects the sandbox or production
// API base from configuration.
func NewClient(cfg config.QuickBooksConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientSecret == "" {
		return nil, errClientSecretRequired
	}

	apiBase := productionAPIBase
	if cfg.IsSandbox() {
		apiBase = sandboxAPIBase
	}

	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		authorizeURL: authorizeEndpoint,
		tokenURL:     tokenEndpoint,
		apiBase:      apiBase,
		logger:       logg,
	}, nil
}

// AuthorizationURL builds the Intuit consent URL for the accounting scope.
func (c *Client) AuthorizationURL(state, redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("scope", accountingScope)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return c.authorizeURL + "?" + q.Encode()
}

// ExchangeCode swaps an authorization code for tokens. The redirect URI must
// byte-for-byte match the one used on the authorize request.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return c.requestToken(ctx, form)
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quickbooks token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quickbooks token request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("quickbooks token response missing access token")
	}
	return &token, nil
}

// Invoice is the minimal accounting payload exported from work order costs.
type Invoice struct {
	CustomerRef string
	DocNumber   string
	Lines       []InvoiceLine
}

// InvoiceLine is a single sales line on an exported invoice.
type InvoiceLine struct {
	Description string
	AmountCents int64
	Quantity    int
	ItemRef     string
}

// InvoiceResult identifies a stored invoice: the Intuit-assigned id plus the
// document number (assigned by Intuit when the request left it blank).
type InvoiceResult struct {
	ID        string
	DocNumber string
}

// CreateInvoice posts an invoice into the company identified by realmID.
func (c *Client) CreateInvoice(ctx context.Context, accessToken, realmID string, invoice Invoice) (*InvoiceResult, error) {
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}
	if realmID == "" {
		return nil, errors.New("realm id is required")
	}
	if len(invoice.Lines) == 0 {
		return nil, errors.New("invoice requires at least one line")
	}

	lines := make([]map[string]any, len(invoice.Lines))
	for i, line := range invoice.Lines {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		detail := map[string]any{"Qty": qty}
		if line.ItemRef != "" {
			detail["ItemRef"] = map[string]any{"value": line.ItemRef}
		}
		lines[i] = map[string]any{
			"DetailType":          "SalesItemLineDetail",
			"Amount":              float64(line.AmountCents) / 100,
			"Description":         line.Description,
			"SalesItemLineDetail": detail,
		}
	}
	payload := map[string]any{"Line": lines}
	if invoice.CustomerRef != "" {
		payload["CustomerRef"] = map[string]any{"value": invoice.CustomerRef}
	}
	if invoice.DocNumber != "" {
		payload["DocNumber"] = invoice.DocNumber
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v3/company/%s/invoice", c.apiBase, url.PathEscape(realmID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quickbooks invoice request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading invoice response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quickbooks invoice create failed: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		Invoice struct {
			ID        string `json:"Id"`
			DocNumber string `json:"DocNumber"`
		} `json:"Invoice"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding invoice response: %w", err)
	}
	return &InvoiceResult{ID: parsed.Invoice.ID, DocNumber: parsed.Invoice.DocNumber}, nil
}
