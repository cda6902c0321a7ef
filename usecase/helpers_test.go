package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/AzielCF/az-juris/core/database"
	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/infrastructure/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateInstance(ctx context.Context, tenantID, name string, webhook *domainGateway.WebhookSettings) (domainGateway.CreateInstanceResult, error) {
	args := m.Called(ctx, tenantID, name, webhook)
	return args.Get(0).(domainGateway.CreateInstanceResult), args.Error(1)
}

func (m *mockGateway) DeleteInstance(ctx context.Context, tenantID, name string) error {
	return m.Called(ctx, tenantID, name).Error(0)
}

func (m *mockGateway) Connect(ctx context.Context, tenantID, name string) (domainGateway.ConnectResult, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(domainGateway.ConnectResult), args.Error(1)
}

func (m *mockGateway) Logout(ctx context.Context, tenantID, name string) error {
	return m.Called(ctx, tenantID, name).Error(0)
}

func (m *mockGateway) ConnectionState(ctx context.Context, tenantID, name string) (string, error) {
	args := m.Called(ctx, tenantID, name)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) FetchInstance(ctx context.Context, tenantID, name string) (domainGateway.InstanceInfo, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(domainGateway.InstanceInfo), args.Error(1)
}

func (m *mockGateway) SendText(ctx context.Context, tenantID, name string, request domainGateway.SendTextRequest) (domainGateway.SendResult, error) {
	args := m.Called(ctx, tenantID, name, request)
	return args.Get(0).(domainGateway.SendResult), args.Error(1)
}

func (m *mockGateway) SetWebhook(ctx context.Context, tenantID, name string, webhook domainGateway.WebhookSettings) error {
	return m.Called(ctx, tenantID, name, webhook).Error(0)
}

type recordingNotifier struct {
	mu        sync.Mutex
	instances []domainInstance.Instance
	messages  []domainChat.Message
}

func (n *recordingNotifier) InstanceChanged(_ context.Context, inst domainInstance.Instance) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.instances = append(n.instances, inst)
}

func (n *recordingNotifier) MessageStored(_ context.Context, _ domainChat.Chat, msg domainChat.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

type testStore struct {
	instances   *repository.InstanceGormRepository
	chats       *repository.ChatGormRepository
	bots        *repository.BotConfigGormRepository
	cases       *repository.CaseGormRepository
	credentials *repository.CredentialGormRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()
	db, err := database.NewMemoryDatabase("usecase_" + uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(context.Background(), db, true))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return testStore{
		instances:   repository.NewInstanceGormRepository(db),
		chats:       repository.NewChatGormRepository(db),
		bots:        repository.NewBotConfigGormRepository(db),
		cases:       repository.NewCaseGormRepository(db),
		credentials: repository.NewCredentialGormRepository(db),
	}
}

// seedInstance inserts an active instance directly, bypassing the gateway.
func seedInstance(t *testing.T, store testStore, tenantID, name string, state domainInstance.State) domainInstance.Instance {
	t.Helper()
	inst := domainInstance.Instance{TenantID: tenantID, Name: name, State: state, Active: true}
	require.NoError(t, store.instances.Create(context.Background(), &inst))
	return inst
}
