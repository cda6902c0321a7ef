package gateway

import (
	"context"
	"time"
)

// CreateInstanceResult is what the gateway returns when provisioning a session.
type CreateInstanceResult struct {
	InstanceID  string
	Status      string
	QRCode      string
	PairingCode string
}

// ConnectResult carries pairing material, or State "open" when the session
// is already live.
type ConnectResult struct {
	State       string
	QRCode      string
	PairingCode string
}

// InstanceInfo is the gateway's record of a session.
type InstanceInfo struct {
	Name              string
	State             string
	ProfileName       string
	Number            string
	ProfilePictureURL string
}

type SendTextRequest struct {
	Number string
	Text   string
}

// SendResult identifies an outbound message accepted by the gateway.
type SendResult struct {
	MessageID string
	RemoteJID string
	Status    string
	Timestamp time.Time
}

type WebhookSettings struct {
	URL     string
	Enabled bool
	Events  []string
}

// Events every instance subscribes to.
var DefaultWebhookEvents = []string{
	"MESSAGES_UPSERT",
	"MESSAGES_UPDATE",
	"CONNECTION_UPDATE",
	"QRCODE_UPDATED",
}

// IGatewayClient talks to the external WhatsApp gateway. Every call resolves
// the tenant's API key and is bounded by the client timeout.
type IGatewayClient interface {
	CreateInstance(ctx context.Context, tenantID, name string, webhook *WebhookSettings) (CreateInstanceResult, error)
	DeleteInstance(ctx context.Context, tenantID, name string) error
	Connect(ctx context.Context, tenantID, name string) (ConnectResult, error)
	Logout(ctx context.Context, tenantID, name string) error
	ConnectionState(ctx context.Context, tenantID, name string) (string, error)
	FetchInstance(ctx context.Context, tenantID, name string) (InstanceInfo, error)
	SendText(ctx context.Context, tenantID, name string, request SendTextRequest) (SendResult, error)
	SetWebhook(ctx context.Context, tenantID, name string, webhook WebhookSettings) error
}

// IKeyResolver returns the API key a tenant uses against the gateway.
type IKeyResolver interface {
	KeyFor(ctx context.Context, tenantID string) (string, error)
}
