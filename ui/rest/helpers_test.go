package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	domainBot "github.com/AzielCF/az-juris/domains/bot"
	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	domainWebhook "github.com/AzielCF/az-juris/domains/webhook"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-a"

// newAPI mounts routes the way cmd/rest.go does, minus basic auth.
func newAPI(register func(api fiber.Router)) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	api := app.Group("/api", middleware.Tenant())
	register(api)
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (int, utils.ResponseData, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var data utils.ResponseData
	require.NoError(t, json.Unmarshal(raw, &data), string(raw))
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	results, _ := generic["results"].(map[string]any)
	return resp.StatusCode, data, results
}

func tenantHeader() map[string]string {
	return map[string]string{middleware.TenantHeader: testTenant}
}

type mockInstanceService struct{ mock.Mock }

func (m *mockInstanceService) Create(ctx context.Context, tenantID string, request domainInstance.CreateInstanceRequest) (domainInstance.Instance, error) {
	args := m.Called(ctx, tenantID, request)
	return args.Get(0).(domainInstance.Instance), args.Error(1)
}

func (m *mockInstanceService) List(ctx context.Context, tenantID string) ([]domainInstance.Instance, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]domainInstance.Instance), args.Error(1)
}

func (m *mockInstanceService) Status(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(domainInstance.Instance), args.Error(1)
}

func (m *mockInstanceService) Connect(ctx context.Context, tenantID, name string) (domainInstance.ConnectResult, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(domainInstance.ConnectResult), args.Error(1)
}

func (m *mockInstanceService) Disconnect(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(domainInstance.Instance), args.Error(1)
}

func (m *mockInstanceService) Delete(ctx context.Context, tenantID, name string) (domainInstance.DeleteResult, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(domainInstance.DeleteResult), args.Error(1)
}

func (m *mockInstanceService) ConfigureWebhook(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(domainInstance.Instance), args.Error(1)
}

func (m *mockInstanceService) HandleConnectionUpdate(ctx context.Context, tenantID, name string, update domainInstance.ConnectionUpdate) (domainInstance.Instance, error) {
	args := m.Called(ctx, tenantID, name, update)
	return args.Get(0).(domainInstance.Instance), args.Error(1)
}

func (m *mockInstanceService) HandleQRCodeUpdate(ctx context.Context, tenantID, name string, update domainInstance.QRCodeUpdate) (domainInstance.Instance, error) {
	args := m.Called(ctx, tenantID, name, update)
	return args.Get(0).(domainInstance.Instance), args.Error(1)
}

type mockChatService struct{ mock.Mock }

func (m *mockChatService) UpsertChat(ctx context.Context, c domainChat.Chat) (domainChat.Chat, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domainChat.Chat), args.Error(1)
}

func (m *mockChatService) AppendOrUpdateMessage(ctx context.Context, c domainChat.Chat, msg domainChat.Message) (domainChat.StoreResult, error) {
	args := m.Called(ctx, c, msg)
	return args.Get(0).(domainChat.StoreResult), args.Error(1)
}

func (m *mockChatService) ApplyStatus(ctx context.Context, tenantID, gatewayMessageID string, status domainChat.Status) (bool, error) {
	args := m.Called(ctx, tenantID, gatewayMessageID, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockChatService) RecordOutbound(ctx context.Context, request domainChat.RecordOutboundRequest) (domainChat.StoreResult, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(domainChat.StoreResult), args.Error(1)
}

func (m *mockChatService) GetChat(ctx context.Context, tenantID, chatID string) (domainChat.Chat, error) {
	args := m.Called(ctx, tenantID, chatID)
	return args.Get(0).(domainChat.Chat), args.Error(1)
}

func (m *mockChatService) ListChats(ctx context.Context, tenantID, instanceName string) ([]domainChat.Chat, error) {
	args := m.Called(ctx, tenantID, instanceName)
	return args.Get(0).([]domainChat.Chat), args.Error(1)
}

func (m *mockChatService) ListMessages(ctx context.Context, tenantID, chatID string, request domainChat.ListMessagesRequest) ([]domainChat.Message, error) {
	args := m.Called(ctx, tenantID, chatID, request)
	return args.Get(0).([]domainChat.Message), args.Error(1)
}

func (m *mockChatService) MarkRead(ctx context.Context, tenantID, chatID string) error {
	return m.Called(ctx, tenantID, chatID).Error(0)
}

type mockSendService struct{ mock.Mock }

func (m *mockSendService) SendText(ctx context.Context, tenantID, instanceName string, request domainChat.SendMessageRequest) (domainChat.Message, error) {
	args := m.Called(ctx, tenantID, instanceName, request)
	return args.Get(0).(domainChat.Message), args.Error(1)
}

type mockBotService struct{ mock.Mock }

func (m *mockBotService) Get(ctx context.Context, tenantID, instanceName string) (domainBot.Config, error) {
	args := m.Called(ctx, tenantID, instanceName)
	return args.Get(0).(domainBot.Config), args.Error(1)
}

func (m *mockBotService) Save(ctx context.Context, tenantID, instanceName string, request domainBot.SaveConfigRequest) (domainBot.Config, error) {
	args := m.Called(ctx, tenantID, instanceName, request)
	return args.Get(0).(domainBot.Config), args.Error(1)
}

type stubWebhookService struct {
	tenants []string
	events  []domainWebhook.Event
	outcome domainWebhook.Outcome
}

func (s *stubWebhookService) Handle(_ context.Context, tenantID string, event domainWebhook.Event) domainWebhook.Outcome {
	s.tenants = append(s.tenants, tenantID)
	s.events = append(s.events, event)
	return s.outcome
}
