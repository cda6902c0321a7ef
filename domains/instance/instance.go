package instance

import (
	"context"
	"time"
)

// State is the locally tracked session state of an instance.
type State string

const (
	StateConnecting   State = "connecting"
	StateQRCode       State = "qr_code"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Gateway connection states as reported in connection.update and connectionState.
const (
	GatewayStateOpen       = "open"
	GatewayStateConnecting = "connecting"
	GatewayStateClose      = "close"
)

// Instance is one WhatsApp session owned by a tenant. Name is unique per
// tenant among active instances.
type Instance struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Name               string     `json:"name"`
	State              State      `json:"state"`
	ProfileName        string     `json:"profile_name,omitempty"`
	Number             string     `json:"number,omitempty"`
	ProfilePictureURL  string     `json:"profile_picture_url,omitempty"`
	QRCode             string     `json:"qr_code,omitempty"`
	PairingCode        string     `json:"pairing_code,omitempty"`
	WebhookConfigured  bool       `json:"webhook_configured"`
	Active             bool       `json:"active"`
	LastSeenAt         *time.Time `json:"last_seen_at,omitempty"`
	ConnectionAttempts int        `json:"connection_attempts"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Profile carries identity fields the gateway reports once a session opens.
// Empty fields leave the stored value untouched.
type Profile struct {
	Name       string `json:"name,omitempty"`
	Number     string `json:"number,omitempty"`
	PictureURL string `json:"picture_url,omitempty"`
}

func (p Profile) IsEmpty() bool {
	return p.Name == "" && p.Number == "" && p.PictureURL == ""
}

// StateChange is a single atomic registry update.
type StateChange struct {
	State        State
	Profile      Profile
	QRCode       string
	PairingCode  string
	CountAttempt bool
}

// DiffersFrom reports whether applying the change would alter inst.
func (c StateChange) DiffersFrom(inst Instance) bool {
	if c.State != inst.State || c.CountAttempt {
		return true
	}
	if c.QRCode != "" && c.QRCode != inst.QRCode {
		return true
	}
	if c.PairingCode != "" && c.PairingCode != inst.PairingCode {
		return true
	}
	p := c.Profile
	return (p.Name != "" && p.Name != inst.ProfileName) ||
		(p.Number != "" && p.Number != inst.Number) ||
		(p.PictureURL != "" && p.PictureURL != inst.ProfilePictureURL)
}

// MapGatewayState maps a gateway connection state onto the local vocabulary:
// "open" is connected, everything else is disconnected.
func MapGatewayState(gatewayState string) State {
	if gatewayState == GatewayStateOpen {
		return StateConnected
	}
	return StateDisconnected
}

// IsPairing reports whether the local state is mid-pairing.
func (s State) IsPairing() bool {
	return s == StateConnecting || s == StateQRCode
}

type CreateInstanceRequest struct {
	Name             string `json:"name"`
	ConfigureWebhook *bool  `json:"configure_webhook,omitempty"`
}

type ConnectResult struct {
	Instance         Instance `json:"instance"`
	QRCode           string   `json:"qr_code,omitempty"`
	PairingCode      string   `json:"pairing_code,omitempty"`
	AlreadyConnected bool     `json:"already_connected"`
}

type DeleteResult struct {
	Name            string `json:"name"`
	Deleted         bool   `json:"deleted"`
	RemoteConfirmed bool   `json:"remote_confirmed"`
	RemoteError     string `json:"remote_error,omitempty"`
}

// ConnectionUpdate is a normalized connection.update webhook payload.
type ConnectionUpdate struct {
	State   string
	Profile Profile
}

// QRCodeUpdate is a normalized qrcode.updated webhook payload.
type QRCodeUpdate struct {
	Code        string
	PairingCode string
}

type IInstanceRepository interface {
	Create(ctx context.Context, inst *Instance) error
	GetByName(ctx context.Context, tenantID, name string) (Instance, error)
	List(ctx context.Context, tenantID string) ([]Instance, error)
	ListAllActive(ctx context.Context) ([]Instance, error)
	ApplyStateChange(ctx context.Context, tenantID, name string, change StateChange) (Instance, error)
	SetWebhookConfigured(ctx context.Context, tenantID, name string, configured bool) (Instance, error)
	Deactivate(ctx context.Context, tenantID, name string) error
}

type IInstanceUsecase interface {
	Create(ctx context.Context, tenantID string, request CreateInstanceRequest) (Instance, error)
	List(ctx context.Context, tenantID string) ([]Instance, error)
	Status(ctx context.Context, tenantID, name string) (Instance, error)
	Connect(ctx context.Context, tenantID, name string) (ConnectResult, error)
	Disconnect(ctx context.Context, tenantID, name string) (Instance, error)
	Delete(ctx context.Context, tenantID, name string) (DeleteResult, error)
	ConfigureWebhook(ctx context.Context, tenantID, name string) (Instance, error)
	HandleConnectionUpdate(ctx context.Context, tenantID, name string, update ConnectionUpdate) (Instance, error)
	HandleQRCodeUpdate(ctx context.Context, tenantID, name string, update QRCodeUpdate) (Instance, error)
}

// IReconcilerUsecase aligns local state with the gateway's view.
type IReconcilerUsecase interface {
	ReconcileInstance(ctx context.Context, inst Instance) (Instance, error)
	ReconcileTenant(ctx context.Context, tenantID string, names ...string) ([]Instance, error)
	Sweep(ctx context.Context) error
	Start(ctx context.Context)
}
