package usecase

import (
	"context"
	"strings"
	"time"

	domainCredential "github.com/AzielCF/az-juris/domains/credential"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/sirupsen/logrus"
)

type credentialService struct {
	repo       domainCredential.ICredentialRepository
	defaultKey string
}

// NewCredentialService resolves per-tenant gateway keys, falling back to
// defaultKey when a tenant has none stored.
func NewCredentialService(repo domainCredential.ICredentialRepository, defaultKey string) domainCredential.ICredentialUsecase {
	return &credentialService{repo: repo, defaultKey: defaultKey}
}

func (s *credentialService) SetGatewayKey(ctx context.Context, tenantID string, request domainCredential.SetGatewayKeyRequest) (domainCredential.GatewayCredential, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return domainCredential.GatewayCredential{}, domainInstance.ErrTenantRequired
	}
	key := strings.TrimSpace(request.APIKey)
	if key == "" {
		return domainCredential.GatewayCredential{}, pkgError.ValidationError("api_key: cannot be blank.")
	}

	cred := domainCredential.GatewayCredential{
		TenantID:  tenantID,
		APIKey:    key,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, cred); err != nil {
		return domainCredential.GatewayCredential{}, err
	}
	logrus.Infof("[CREDENTIAL] gateway key updated for tenant %s", tenantID)

	cred.APIKey = ""
	return cred, nil
}

func (s *credentialService) KeyFor(ctx context.Context, tenantID string) (string, error) {
	if s.repo == nil || tenantID == "" {
		return s.defaultKey, nil
	}
	cred, ok, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if !ok || cred.APIKey == "" {
		return s.defaultKey, nil
	}
	return cred.APIKey, nil
}
