package rest

import (
	"net/http"
	"testing"
	"time"

	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newInstanceAPI(svc *mockInstanceService) *fiber.App {
	return newAPI(func(api fiber.Router) { InitRestInstance(api, svc) })
}

func TestInstance_MissingTenantIsRejected(t *testing.T) {
	svc := &mockInstanceService{}
	app := newInstanceAPI(svc)

	status, body, _ := call(t, app, http.MethodGet, "/api/instances", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestInstance_ListAddsHumanizedTimes(t *testing.T) {
	svc := &mockInstanceService{}
	seen := time.Now().Add(-3 * time.Hour)
	svc.On("List", mock.Anything, testTenant).Return([]domainInstance.Instance{
		{Name: "vendas", State: domainInstance.StateConnected, LastSeenAt: &seen, UpdatedAt: time.Now()},
	}, nil)
	app := newInstanceAPI(svc)

	status, body, _ := call(t, app, http.MethodGet, "/api/instances", nil, tenantHeader())

	assert.Equal(t, http.StatusOK, status)
	list, ok := body.Results.([]any)
	if assert.True(t, ok) && assert.Len(t, list, 1) {
		item := list[0].(map[string]any)
		assert.Equal(t, "vendas", item["name"])
		assert.Equal(t, "connected", item["state"])
		assert.Equal(t, "3 hours ago", item["last_seen"])
	}
	svc.AssertExpectations(t)
}

func TestInstance_CreateReturns201(t *testing.T) {
	svc := &mockInstanceService{}
	svc.On("Create", mock.Anything, testTenant, domainInstance.CreateInstanceRequest{Name: "vendas"}).
		Return(domainInstance.Instance{Name: "vendas", State: domainInstance.StateConnecting, Active: true}, nil)
	app := newInstanceAPI(svc)

	status, _, results := call(t, app, http.MethodPost, "/api/instances", map[string]any{"name": "vendas"}, tenantHeader())

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "connecting", results["state"])
}

func TestInstance_CreateConflict(t *testing.T) {
	svc := &mockInstanceService{}
	svc.On("Create", mock.Anything, testTenant, mock.Anything).
		Return(domainInstance.Instance{}, domainInstance.ErrInstanceConflict)
	app := newInstanceAPI(svc)

	status, body, _ := call(t, app, http.MethodPost, "/api/instances", map[string]any{"name": "vendas"}, tenantHeader())

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body.Code)
}

func TestInstance_CreateRejectsMalformedBody(t *testing.T) {
	svc := &mockInstanceService{}
	app := newInstanceAPI(svc)

	status, body, _ := call(t, app, http.MethodPost, "/api/instances", "{not json", tenantHeader())

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestInstance_ConnectReturnsQRCode(t *testing.T) {
	svc := &mockInstanceService{}
	svc.On("Connect", mock.Anything, testTenant, "vendas").Return(domainInstance.ConnectResult{
		Instance: domainInstance.Instance{Name: "vendas", State: domainInstance.StateQRCode},
		QRCode:   "2@abc",
	}, nil)
	app := newInstanceAPI(svc)

	status, _, results := call(t, app, http.MethodPost, "/api/instances/vendas/connect", nil, tenantHeader())

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2@abc", results["qr_code"])
	assert.Equal(t, false, results["already_connected"])
}

func TestInstance_DeleteReportsUnconfirmedRemote(t *testing.T) {
	svc := &mockInstanceService{}
	svc.On("Delete", mock.Anything, testTenant, "vendas").Return(domainInstance.DeleteResult{
		Name:        "vendas",
		Deleted:     true,
		RemoteError: "gateway delete: status 500",
	}, nil)
	app := newInstanceAPI(svc)

	status, body, results := call(t, app, http.MethodDelete, "/api/instances/vendas", nil, tenantHeader())

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body.Message, "did not confirm")
	assert.Equal(t, true, results["deleted"])
	assert.Equal(t, false, results["remote_confirmed"])
}

func TestInstance_GatewayErrorsPassThrough(t *testing.T) {
	svc := &mockInstanceService{}
	svc.On("Status", mock.Anything, testTenant, "vendas").
		Return(domainInstance.Instance{}, &domainGateway.Error{Op: "connectionState", Timeout: true})
	svc.On("Disconnect", mock.Anything, testTenant, "vendas").
		Return(domainInstance.Instance{}, domainInstance.ErrInstanceNotFound)
	app := newInstanceAPI(svc)

	status, body, _ := call(t, app, http.MethodGet, "/api/instances/vendas/status", nil, tenantHeader())
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "GATEWAY_TIMEOUT", body.Code)

	status, _, _ = call(t, app, http.MethodPost, "/api/instances/vendas/disconnect", nil, tenantHeader())
	assert.Equal(t, http.StatusNotFound, status)
}
