package usecase

import (
	"context"
	"net/http"
	"testing"

	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T) (domainInstance.IReconcilerUsecase, *mockGateway, testStore, *recordingNotifier) {
	t.Helper()
	store := newTestStore(t)
	gw := new(mockGateway)
	notifier := &recordingNotifier{}
	return NewReconcilerService(store.instances, gw, notifier, 0, 2), gw, store, notifier
}

func TestReconciler_ConnectedDriftFetchesProfile(t *testing.T) {
	rec, gw, store, notifier := newTestReconciler(t)
	ctx := context.Background()
	inst := seedInstance(t, store, "t1", "vendas", domainInstance.StateQRCode)

	gw.On("ConnectionState", mock.Anything, "t1", "vendas").Return("open", nil)
	gw.On("FetchInstance", mock.Anything, "t1", "vendas").Return(domainGateway.InstanceInfo{
		Name: "vendas", State: "open", ProfileName: "Escritório", Number: "5511999999999",
	}, nil)

	updated, err := rec.ReconcileInstance(ctx, inst)
	require.NoError(t, err)
	assert.Equal(t, domainInstance.StateConnected, updated.State)
	assert.Equal(t, "Escritório", updated.ProfileName)
	assert.Equal(t, "5511999999999", updated.Number)
	assert.Len(t, notifier.instances, 1)

	// Nothing changed: no profile fetch, no write.
	again, err := rec.ReconcileInstance(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, again.UpdatedAt)
	gw.AssertNumberOfCalls(t, "FetchInstance", 1)
	assert.Len(t, notifier.instances, 1)
}

func TestReconciler_GatewayConnectingWhilePairingIsNotDrift(t *testing.T) {
	rec, gw, store, notifier := newTestReconciler(t)
	inst := seedInstance(t, store, "t1", "vendas", domainInstance.StateQRCode)

	gw.On("ConnectionState", mock.Anything, "t1", "vendas").Return("connecting", nil)

	updated, err := rec.ReconcileInstance(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, domainInstance.StateQRCode, updated.State)
	assert.Empty(t, notifier.instances)
}

func TestReconciler_GatewayNotFoundMeansDisconnected(t *testing.T) {
	rec, gw, store, _ := newTestReconciler(t)
	inst := seedInstance(t, store, "t1", "vendas", domainInstance.StateConnected)

	gw.On("ConnectionState", mock.Anything, "t1", "vendas").
		Return("", &domainGateway.Error{Op: "connectionState", Status: http.StatusNotFound})

	updated, err := rec.ReconcileInstance(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, domainInstance.StateDisconnected, updated.State)
}

func TestReconciler_TransientErrorKeepsLocalCopy(t *testing.T) {
	rec, gw, store, _ := newTestReconciler(t)
	ctx := context.Background()
	seedInstance(t, store, "t1", "vendas", domainInstance.StateConnected)
	seedInstance(t, store, "t1", "suporte", domainInstance.StateConnected)

	gw.On("ConnectionState", mock.Anything, "t1", "vendas").
		Return("", &domainGateway.Error{Op: "connectionState", Timeout: true})
	gw.On("ConnectionState", mock.Anything, "t1", "suporte").Return("close", nil)

	list, err := rec.ReconcileTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	byName := map[string]domainInstance.Instance{}
	for _, inst := range list {
		byName[inst.Name] = inst
	}
	assert.Equal(t, domainInstance.StateConnected, byName["vendas"].State)
	assert.Equal(t, domainInstance.StateDisconnected, byName["suporte"].State)
}

func TestReconciler_ReconcileTenantSubset(t *testing.T) {
	rec, gw, store, _ := newTestReconciler(t)
	seedInstance(t, store, "t1", "vendas", domainInstance.StateConnected)
	seedInstance(t, store, "t1", "suporte", domainInstance.StateConnected)

	gw.On("ConnectionState", mock.Anything, "t1", "suporte").Return("close", nil)

	list, err := rec.ReconcileTenant(context.Background(), "t1", "suporte")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "suporte", list[0].Name)
	gw.AssertNotCalled(t, "ConnectionState", mock.Anything, "t1", "vendas")
}

func TestReconciler_SweepCoversAllTenants(t *testing.T) {
	rec, gw, store, _ := newTestReconciler(t)
	ctx := context.Background()
	seedInstance(t, store, "t1", "vendas", domainInstance.StateConnected)
	seedInstance(t, store, "t2", "vendas", domainInstance.StateConnected)

	gw.On("ConnectionState", mock.Anything, mock.Anything, "vendas").Return("close", nil)

	require.NoError(t, rec.Sweep(ctx))

	for _, tenant := range []string{"t1", "t2"} {
		inst, err := store.instances.GetByName(ctx, tenant, "vendas")
		require.NoError(t, err)
		assert.Equal(t, domainInstance.StateDisconnected, inst.State, tenant)
	}
	gw.AssertNumberOfCalls(t, "ConnectionState", 2)
}

func TestInstanceService_ListIsReconciled(t *testing.T) {
	store := newTestStore(t)
	gw := new(mockGateway)
	rec := NewReconcilerService(store.instances, gw, nil, 0, 2)
	svc := NewInstanceService(store.instances, gw, rec, nil, nil)
	seedInstance(t, store, "t1", "vendas", domainInstance.StateConnected)

	gw.On("ConnectionState", mock.Anything, "t1", "vendas").Return("close", nil)

	list, err := svc.List(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domainInstance.StateDisconnected, list[0].State)
}
