package usecase

import (
	"context"
	"testing"

	domainCredential "github.com/AzielCF/az-juris/domains/credential"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialService_KeyForFallsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	svc := NewCredentialService(store.credentials, "global-key")

	key, err := svc.KeyFor(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "global-key", key)

	saved, err := svc.SetGatewayKey(ctx, "t1", domainCredential.SetGatewayKeyRequest{APIKey: " tenant-key "})
	require.NoError(t, err)
	assert.Equal(t, "t1", saved.TenantID)
	assert.Empty(t, saved.APIKey)

	key, err = svc.KeyFor(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-key", key)

	key, err = svc.KeyFor(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "global-key", key)
}

func TestCredentialService_SetGatewayKeyValidation(t *testing.T) {
	store := newTestStore(t)
	svc := NewCredentialService(store.credentials, "")

	_, err := svc.SetGatewayKey(context.Background(), "", domainCredential.SetGatewayKeyRequest{APIKey: "k"})
	assert.ErrorIs(t, err, domainInstance.ErrTenantRequired)

	_, err = svc.SetGatewayKey(context.Background(), "t1", domainCredential.SetGatewayKeyRequest{APIKey: "  "})
	assert.Error(t, err)
}
