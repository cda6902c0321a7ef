package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/domains/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []BroadcastMessage
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) == 0 {
		return nil
	}
	var msg BroadcastMessage
	if err := json.Unmarshal(data, &msg); err == nil {
		f.frames = append(f.frames, msg)
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() []BroadcastMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BroadcastMessage(nil), f.frames...)
}

type fakePubSub struct {
	mu        sync.Mutex
	published [][]byte
	deliver   chan []byte
}

func (f *fakePubSub) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakePubSub) Subscribe(ctx context.Context, _ string, fn func([]byte)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-f.deliver:
			fn(payload)
		}
	}
}

func (f *fakePubSub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func startHub(t *testing.T, pubsub PubSub) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(pubsub, "azjuris:ws_broadcast", "server-1")
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHub_DeliversOnlyToSameTenant(t *testing.T) {
	hub, _ := startHub(t, nil)
	mine, other := &fakeConn{}, &fakeConn{}
	require.True(t, hub.addClient(mine, "tenant-a"))
	require.True(t, hub.addClient(other, "tenant-b"))

	hub.InstanceChanged(context.Background(), domainInstance.Instance{TenantID: "tenant-a", Name: "vendas", State: domainInstance.StateConnected})

	require.Eventually(t, func() bool { return len(mine.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, notify.EventInstanceState, mine.received()[0].Code)
	assert.Empty(t, other.received())
}

func TestHub_PublishesAndIgnoresOwnEcho(t *testing.T) {
	ps := &fakePubSub{deliver: make(chan []byte)}
	hub, _ := startHub(t, ps)
	conn := &fakeConn{}
	require.True(t, hub.addClient(conn, "tenant-a"))

	hub.InstanceChanged(context.Background(), domainInstance.Instance{TenantID: "tenant-a", Name: "vendas"})
	require.Eventually(t, func() bool { return ps.count() == 1 }, time.Second, 5*time.Millisecond)

	var published BroadcastMessage
	require.NoError(t, json.Unmarshal(ps.published[0], &published))
	assert.Equal(t, "server-1", published.SenderID)

	// Own echo is dropped, a frame from another server is delivered.
	ps.deliver <- ps.published[0]
	remote, _ := json.Marshal(BroadcastMessage{Code: notify.EventMessageStored, TenantID: "tenant-a", SenderID: "server-2"})
	ps.deliver <- remote

	require.Eventually(t, func() bool { return len(conn.received()) == 2 }, time.Second, 5*time.Millisecond)
	frames := conn.received()
	assert.Equal(t, notify.EventInstanceState, frames[0].Code)
	assert.Equal(t, notify.EventMessageStored, frames[1].Code)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t, nil)
	conn := &fakeConn{}
	require.True(t, hub.addClient(conn, "tenant-a"))

	cancel()

	require.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return conn.closed
	}, time.Second, 5*time.Millisecond)
}

func TestHub_HandlersDoNotBlockAfterShutdown(t *testing.T) {
	hub, cancel := startHub(t, nil)
	conn := &fakeConn{}
	require.True(t, hub.addClient(conn, "tenant-a"))

	cancel()
	<-hub.done

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		hub.removeClient(conn)
		assert.False(t, hub.addClient(&fakeConn{}, "tenant-a"))
		for i := 0; i < broadcastBuffer+1; i++ {
			hub.handleClientMessage(conn, "tenant-a", []byte(`{"code":"FETCH_INSTANCES"}`), &listOnly{})
		}
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("websocket handler blocked on a stopped hub")
	}
}

type listOnly struct {
	domainInstance.IInstanceUsecase
	tenants []string
}

func (l *listOnly) List(_ context.Context, tenantID string) ([]domainInstance.Instance, error) {
	l.tenants = append(l.tenants, tenantID)
	return []domainInstance.Instance{{Name: "vendas", TenantID: tenantID}}, nil
}

func TestHub_FetchInstancesRepliesToCaller(t *testing.T) {
	hub, _ := startHub(t, nil)
	caller, bystander := &fakeConn{}, &fakeConn{}
	require.True(t, hub.addClient(caller, "tenant-a"))
	require.True(t, hub.addClient(bystander, "tenant-a"))

	svc := &listOnly{}
	hub.handleClientMessage(caller, "tenant-a", []byte(`{"code":"FETCH_INSTANCES"}`), svc)

	require.Eventually(t, func() bool { return len(caller.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, CodeListInstances, caller.received()[0].Code)
	assert.Empty(t, bystander.received())
	assert.Equal(t, []string{"tenant-a"}, svc.tenants)
}
