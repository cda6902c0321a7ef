package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/domains/notify"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultExchange = "azjuris.events"
	source          = "az-juris"
	queueSize       = 1024
	confirmTimeout  = 5 * time.Second
	confirmBuffer   = 64
)

var ErrNotConfirmed = errors.New("broker did not confirm publish")

type Meta struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	TenantID string    `json:"tenant_id"`
	Source   string    `json:"source"`
	Time     time.Time `json:"time"`
}

// Envelope is the body of every published event.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type InstanceStateData struct {
	InstanceID string               `json:"instance_id"`
	Name       string               `json:"name"`
	State      domainInstance.State `json:"state"`
	Number     string               `json:"number,omitempty"`
	Active     bool                 `json:"active"`
}

type MessageStoredData struct {
	ChatID           string               `json:"chat_id"`
	InstanceID       string               `json:"instance_id"`
	CaseID           string               `json:"case_id,omitempty"`
	RemoteJID        string               `json:"remote_jid"`
	GatewayMessageID string               `json:"gateway_message_id"`
	Direction        domainChat.Direction `json:"direction"`
	Kind             domainChat.Kind      `json:"kind"`
	Text             string               `json:"text"`
	Status           domainChat.Status    `json:"status"`
	Timestamp        time.Time            `json:"timestamp"`
}

// NewEnvelope stamps a fresh id and time.
func NewEnvelope(eventType, tenantID string, data any) Envelope {
	return Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Type:     eventType,
			TenantID: tenantID,
			Source:   source,
			Time:     time.Now().UTC(),
		},
		Data: data,
	}
}

type sendFunc func(ctx context.Context, routingKey string, msg amqp.Publishing) error

// Publisher sends integration events to a topic exchange with publisher
// confirms. Notifications are queued and published from Run so callers
// never wait on the broker.
type Publisher struct {
	exchange string
	send     sendFunc
	queue    chan Envelope
	closers  []func() error
}

// DialWithRetry connects, retrying with a fixed delay until attempts run
// out or ctx ends.
func DialWithRetry(ctx context.Context, url string, attempts int, delay time.Duration) (*amqp.Connection, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logrus.Warnf("[BROKER] Dial attempt %d/%d failed: %v", i, attempts, err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("dial broker: %w", lastErr)
}

// NewPublisher declares the exchange and puts a dedicated channel in
// confirm mode.
func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))

	var mu sync.Mutex
	send := func(ctx context.Context, routingKey string, msg amqp.Publishing) error {
		mu.Lock()
		defer mu.Unlock()

		tag := ch.GetNextPublishSeqNo()
		if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
			return err
		}
		return awaitConfirm(ctx, confirms, tag)
	}

	p := newPublisher(exchange, send)
	p.closers = []func() error{ch.Close, conn.Close}
	return p, nil
}

// awaitConfirm waits for the confirm carrying tag. Confirms for earlier
// tags arrive late after a timed-out wait and are skipped.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, tag uint64) error {
	for {
		select {
		case confirm, ok := <-confirms:
			if !ok {
				return ErrNotConfirmed
			}
			if confirm.DeliveryTag < tag {
				continue
			}
			if !confirm.Ack {
				return ErrNotConfirmed
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func newPublisher(exchange string, send sendFunc) *Publisher {
	return &Publisher{
		exchange: exchange,
		send:     send,
		queue:    make(chan Envelope, queueSize),
	}
}

// Publish sends one envelope and waits for the broker's confirm.
func (p *Publisher) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	return p.send(ctx, env.Meta.Type, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: env.Meta.ID,
		Type:          env.Meta.Type,
		AppId:         source,
		Timestamp:     env.Meta.Time,
		Body:          body,
	})
}

// Run drains queued notifications until ctx ends.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-p.queue:
			if err := p.Publish(ctx, env); err != nil {
				logrus.WithFields(logrus.Fields{
					"type":   env.Meta.Type,
					"tenant": env.Meta.TenantID,
				}).WithError(err).Warn("[BROKER] Publish failed")
				continue
			}
			logrus.Debugf("[BROKER] Published %s to %s", env.Meta.Type, p.exchange)
		}
	}
}

func (p *Publisher) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) InstanceChanged(_ context.Context, inst domainInstance.Instance) {
	p.enqueue(NewEnvelope(notify.EventInstanceState, inst.TenantID, InstanceStateData{
		InstanceID: inst.ID,
		Name:       inst.Name,
		State:      inst.State,
		Number:     inst.Number,
		Active:     inst.Active,
	}))
}

func (p *Publisher) MessageStored(_ context.Context, c domainChat.Chat, msg domainChat.Message) {
	p.enqueue(NewEnvelope(notify.EventMessageStored, msg.TenantID, MessageStoredData{
		ChatID:           c.ID,
		InstanceID:       c.InstanceID,
		CaseID:           c.CaseID,
		RemoteJID:        msg.RemoteJID,
		GatewayMessageID: msg.GatewayMessageID,
		Direction:        msg.Direction,
		Kind:             msg.Content.Kind,
		Text:             msg.Content.Text,
		Status:           msg.Status,
		Timestamp:        msg.Timestamp,
	}))
}

func (p *Publisher) enqueue(env Envelope) {
	select {
	case p.queue <- env:
	default:
		logrus.Warnf("[BROKER] Queue full, dropping %s for tenant %s", env.Meta.Type, env.Meta.TenantID)
	}
}
