package quickbooks

import (
	"time"

	"github.com/google/uuid"
)

// ConnectSession is returned when a connect flow starts: the URL the browser
// should visit and the opaque token tying the callback to this org and user.
type ConnectSession struct {
	AuthorizationURL string    `json:"authorization_url"`
	SessionToken     string    `json:"session_token"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// connectState is the payload packed into the OAuth state parameter as
// base64-encoded JSON.
type connectState struct {
	SessionToken string `json:"sessionToken"`
	Nonce        string `json:"nonce"`
	Timestamp    int64  `json:"timestamp"`
}

// CallbackInput carries the query parameters Intuit sends to the redirect URI.
type CallbackInput struct {
	Code       string
	State      string
	RealmID    string
	ErrorParam string
}

// ConnectionStatus reports whether an organization has a live connection.
type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	RealmID     string     `json:"realm_id,omitempty"`
	ConnectedBy *uuid.UUID `json:"connected_by,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// ExportInvoiceInput names the work order whose costs become invoice lines.
type ExportInvoiceInput struct {
	WorkOrderID uuid.UUID
	CustomerRef string
	DocNumber   string
}

// ExportResult reports the stored invoice. Exports always create a new
// invoice; IsUpdate is carried for clients that track re-exports.
type ExportResult struct {
	Success       bool   `json:"success"`
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	IsUpdate      bool   `json:"is_update"`
	Message       string `json:"message"`
}
