package credential

import (
	"context"
	"time"
)

// GatewayCredential is the API key a tenant uses against the messaging gateway.
type GatewayCredential struct {
	TenantID  string    `json:"tenant_id"`
	APIKey    string    `json:"api_key,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SetGatewayKeyRequest struct {
	APIKey string `json:"api_key"`
}

type ICredentialRepository interface {
	Get(ctx context.Context, tenantID string) (GatewayCredential, bool, error)
	Save(ctx context.Context, cred GatewayCredential) error
}

type ICredentialUsecase interface {
	SetGatewayKey(ctx context.Context, tenantID string, request SetGatewayKeyRequest) (GatewayCredential, error)
	KeyFor(ctx context.Context, tenantID string) (string, error)
}
