package websocket

import (
	"context"
	"encoding/json"
	"time"

	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/domains/notify"
	"github.com/AzielCF/az-juris/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	CodeFetchInstances = "FETCH_INSTANCES"
	CodeListInstances  = "LIST_INSTANCES"

	tenantLocal     = "ws_tenant"
	broadcastBuffer = 256
	publishTimeout  = 2 * time.Second
)

// BroadcastMessage is the frame every client receives. Code is one of the
// notify event names or a reply code.
type BroadcastMessage struct {
	Code     string `json:"code"`
	TenantID string `json:"tenant_id"`
	Message  string `json:"message,omitempty"`
	Result   any    `json:"result,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
}

// PubSub carries frames between servers. *valkey.Client implements it.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, fn func(payload []byte)) error
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscription struct {
	conn     Conn
	tenantID string
}

type direct struct {
	conn    Conn
	message BroadcastMessage
}

// Hub fans events out to the websocket clients of the same tenant. When a
// PubSub is set, local events are also published for other servers and
// their events are delivered here.
type Hub struct {
	clients map[Conn]string

	register   chan subscription
	unregister chan Conn
	broadcast  chan BroadcastMessage
	remote     chan BroadcastMessage
	direct     chan direct
	// done is closed when Run returns; handler sends select on it.
	done chan struct{}

	pubsub   PubSub
	channel  string
	serverID string
}

// NewHub builds a hub; pubsub may be nil for a single server.
func NewHub(pubsub PubSub, channel, serverID string) *Hub {
	return &Hub{
		clients:    make(map[Conn]string),
		register:   make(chan subscription),
		unregister: make(chan Conn),
		broadcast:  make(chan BroadcastMessage, broadcastBuffer),
		remote:     make(chan BroadcastMessage, broadcastBuffer),
		direct:     make(chan direct, broadcastBuffer),
		done:       make(chan struct{}),
		pubsub:     pubsub,
		channel:    channel,
		serverID:   serverID,
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.pubsub != nil {
		go h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				h.closeConnection(conn)
			}
			return

		case sub := <-h.register:
			h.clients[sub.conn] = sub.tenantID
			logrus.Debugf("[WS] Connection registered for tenant %s (%d open)", sub.tenantID, len(h.clients))

		case conn := <-h.unregister:
			delete(h.clients, conn)
			logrus.Debug("[WS] Connection unregistered")

		case message := <-h.broadcast:
			h.broadcastToLocal(message)
			if h.pubsub != nil {
				h.publish(ctx, message)
			}

		case message := <-h.remote:
			h.broadcastToLocal(message)

		case d := <-h.direct:
			if _, ok := h.clients[d.conn]; ok {
				h.write(d.conn, d.message)
			}
		}
	}
}

func (h *Hub) InstanceChanged(_ context.Context, inst domainInstance.Instance) {
	h.enqueue(BroadcastMessage{
		Code:     notify.EventInstanceState,
		TenantID: inst.TenantID,
		Message:  "Instance " + inst.Name + " is " + string(inst.State),
		Result:   inst,
	})
}

func (h *Hub) MessageStored(_ context.Context, c domainChat.Chat, msg domainChat.Message) {
	h.enqueue(BroadcastMessage{
		Code:     notify.EventMessageStored,
		TenantID: msg.TenantID,
		Result: map[string]any{
			"chat":    c,
			"message": msg,
		},
	})
}

// enqueue never blocks the caller; a full buffer drops the frame.
func (h *Hub) enqueue(message BroadcastMessage) {
	select {
	case h.broadcast <- message:
	default:
		logrus.Warnf("[WS] Broadcast buffer full, dropping %s for tenant %s", message.Code, message.TenantID)
	}
}

func (h *Hub) broadcastToLocal(message BroadcastMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	for conn, tenantID := range h.clients {
		if tenantID != message.TenantID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.Debugf("[WS] Write error: %v", err)
			h.closeConnection(conn)
		}
	}
}

func (h *Hub) write(conn Conn, message BroadcastMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.closeConnection(conn)
	}
}

func (h *Hub) publish(ctx context.Context, message BroadcastMessage) {
	message.SenderID = h.serverID
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := h.pubsub.Publish(ctx, h.channel, payload); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func (h *Hub) subscribe(ctx context.Context) {
	logrus.Infof("[WS] Subscribing to %s for cross-server events", h.channel)
	err := h.pubsub.Subscribe(ctx, h.channel, func(payload []byte) {
		var message BroadcastMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			return
		}
		if message.SenderID == h.serverID {
			return
		}
		select {
		case h.remote <- message:
		case <-ctx.Done():
		}
	})
	if err != nil && ctx.Err() == nil {
		logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
	}
}

func (h *Hub) closeConnection(conn Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
}

// RegisterRoutes mounts GET /ws under router, which must already carry the
// tenant middleware. Clients may send FETCH_INSTANCES to get the tenant's
// instance list back on their own connection.
func (h *Hub) RegisterRoutes(router fiber.Router, instances domainInstance.IInstanceUsecase) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(tenantLocal, middleware.TenantID(c))
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	router.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		tenantID, _ := conn.Locals(tenantLocal).(string)
		defer func() {
			h.removeClient(conn)
			_ = conn.Close()
		}()

		if !h.addClient(conn, tenantID) {
			return
		}

		for {
			messageType, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] Read error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			h.handleClientMessage(conn, tenantID, raw, instances)
		}
	}))
}

func (h *Hub) handleClientMessage(conn Conn, tenantID string, raw []byte, instances domainInstance.IInstanceUsecase) {
	var request BroadcastMessage
	if err := json.Unmarshal(raw, &request); err != nil {
		logrus.Debugf("[WS] Ignoring undecodable client frame: %v", err)
		return
	}
	if request.Code != CodeFetchInstances || instances == nil {
		return
	}

	list, err := instances.List(context.Background(), tenantID)
	reply := BroadcastMessage{Code: CodeListInstances, TenantID: tenantID, Result: list}
	if err != nil {
		reply.Message = err.Error()
		reply.Result = nil
	}
	select {
	case h.direct <- direct{conn: conn, message: reply}:
	case <-h.done:
	}
}

// addClient hands conn to Run. It reports false once the hub has stopped.
func (h *Hub) addClient(conn Conn, tenantID string) bool {
	select {
	case h.register <- subscription{conn: conn, tenantID: tenantID}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}
