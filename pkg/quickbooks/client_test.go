package quickbooks

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	client, err := NewClient(config.QuickBooksConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Environment:  "sandbox",
	}, logg)
	require.NoError(t, err)
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})

	_, err := NewClient(config.QuickBooksConfig{ClientSecret: "s"}, logg)
	require.ErrorIs(t, err, errClientIDRequired)

	_, err = NewClient(config.QuickBooksConfig{ClientID: "c"}, logg)
	require.ErrorIs(t, err, errClientSecretRequired)
}

func TestAuthorizationURLCarriesStateAndRedirect(t *testing.T) {
	client := newTestClient(t, nil)

	u := client.AuthorizationURL("opaque-state", "https://app.example.com/callback")
	assert.Contains(t, u, "state=opaque-state")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "scope=com.intuit.quickbooks.accounting")
	assert.Contains(t, u, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback")
}

func TestExchangeCodeSendsBasicAuthAndForm(t *testing.T) {
	var captured *http.Request
	var form string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		body, _ := io.ReadAll(req.Body)
		form = string(body)
		return jsonResponse(http.StatusOK, `{
			"access_token": "at",
			"refresh_token": "rt",
			"token_type": "bearer",
			"expires_in": 3600,
			"x_refresh_token_expires_in": 8726400
		}`), nil
	})

	token, err := client.ExchangeCode(context.Background(), "auth-code", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)
	assert.EqualValues(t, 3600, token.ExpiresIn)

	expectedAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-id:client-secret"))
	assert.Equal(t, expectedAuth, captured.Header.Get("Authorization"))
	assert.Contains(t, form, "grant_type=authorization_code")
	assert.Contains(t, form, "code=auth-code")
	assert.Contains(t, form, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback")
}

func TestExchangeCodeSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`), nil
	})

	_, err := client.ExchangeCode(context.Background(), "stale-code", "https://app.example.com/callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefreshTokenUsesRefreshGrant(t *testing.T) {
	var form string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		form = string(body)
		return jsonResponse(http.StatusOK, `{"access_token":"new-at","refresh_token":"new-rt","expires_in":3600}`), nil
	})

	token, err := client.RefreshToken(context.Background(), "old-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-at", token.AccessToken)
	assert.Contains(t, form, "grant_type=refresh_token")
	assert.Contains(t, form, "refresh_token=old-rt")
}

func TestCreateInvoicePostsToRealm(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"Invoice":{"Id":"inv-42","DocNumber":"1017"}}`), nil
	})

	result, err := client.CreateInvoice(context.Background(), "at", "realm-9", Invoice{
		Lines: []InvoiceLine{{Description: "pump seal", AmountCents: 1250, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "inv-42", result.ID)
	assert.Equal(t, "1017", result.DocNumber)
	assert.Contains(t, captured.URL.Path, "/v3/company/realm-9/invoice")
	assert.Equal(t, "Bearer at", captured.Header.Get("Authorization"))
	assert.Contains(t, captured.URL.Host, "sandbox")
}

func TestCreateInvoiceRequiresLines(t *testing.T) {
	client := newTestClient(t, nil)
	_, err := client.CreateInvoice(context.Background(), "at", "realm", Invoice{})
	require.Error(t, err)
}
