package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainBot "github.com/AzielCF/az-juris/domains/bot"
	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	domainWebhook "github.com/AzielCF/az-juris/domains/webhook"
	"github.com/AzielCF/az-juris/pkg/msgworker"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Dispatcher queues per-conversation work. *msgworker.MessageWorkerPool
// satisfies it.
type Dispatcher interface {
	TryDispatch(job msgworker.MessageJob) bool
}

type webhookService struct {
	instances    domainInstance.IInstanceUsecase
	instanceRepo domainInstance.IInstanceRepository
	chats        domainChat.IChatUsecase
	responder    domainBot.IAutoResponder
	dispatcher   Dispatcher
}

// NewWebhookService wires the ingestion pipeline. responder may be nil to
// disable auto replies; with a nil dispatcher replies run inline.
func NewWebhookService(
	instances domainInstance.IInstanceUsecase,
	instanceRepo domainInstance.IInstanceRepository,
	chats domainChat.IChatUsecase,
	responder domainBot.IAutoResponder,
	dispatcher Dispatcher,
) domainWebhook.IWebhookUsecase {
	return &webhookService{
		instances:    instances,
		instanceRepo: instanceRepo,
		chats:        chats,
		responder:    responder,
		dispatcher:   dispatcher,
	}
}

func (s *webhookService) Handle(ctx context.Context, tenantID string, event domainWebhook.Event) (outcome domainWebhook.Outcome) {
	name := domainWebhook.NormalizeEvent(event.Event)
	log := logrus.WithFields(logrus.Fields{"tenant": tenantID, "instance": event.Instance, "event": name})

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[WEBHOOK] handler panicked: %v", r)
			outcome = domainWebhook.OutcomeFailed
		}
	}()

	var err error
	switch name {
	case domainWebhook.EventMessagesUpsert:
		outcome, err = s.handleUpsert(ctx, tenantID, event)
	case domainWebhook.EventMessagesUpdate:
		outcome, err = s.handleUpdate(ctx, tenantID, event)
	case domainWebhook.EventConnectionUpdate:
		outcome, err = s.handleConnection(ctx, tenantID, event)
	case domainWebhook.EventQRCodeUpdated:
		outcome, err = s.handleQRCode(ctx, tenantID, event)
	default:
		log.Debug("[WEBHOOK] ignoring unhandled event")
		return domainWebhook.OutcomeIgnored
	}

	if err != nil {
		log.WithError(err).Error("[WEBHOOK] handler failed")
		return domainWebhook.OutcomeFailed
	}
	log.Debugf("[WEBHOOK] %s", outcome)
	return outcome
}

func (s *webhookService) handleUpsert(ctx context.Context, tenantID string, event domainWebhook.Event) (domainWebhook.Outcome, error) {
	items, err := domainWebhook.DecodeList[domainWebhook.MessageUpsertData](event.Data)
	if err != nil {
		logrus.WithError(err).Warnf("[WEBHOOK] undecodable messages.upsert for %s", event.Instance)
		return domainWebhook.OutcomeDropped, nil
	}

	inst, err := s.instanceRepo.GetByName(ctx, tenantID, event.Instance)
	if errors.Is(err, domainInstance.ErrInstanceNotFound) {
		logrus.Warnf("[WEBHOOK] messages.upsert for unknown instance %s/%s", tenantID, event.Instance)
		return domainWebhook.OutcomeIgnored, nil
	}
	if err != nil {
		return domainWebhook.OutcomeFailed, err
	}

	outcome := domainWebhook.OutcomeDropped
	var errs []error
	for _, item := range items {
		stored, err := s.storeUpsert(ctx, inst, item)
		if err != nil {
			errs = append(errs, fmt.Errorf("message %s: %w", item.Key.ID, err))
			continue
		}
		if stored {
			outcome = domainWebhook.OutcomeProcessed
		}
	}
	return outcome, errors.Join(errs...)
}

// storeUpsert persists one message and reports whether it was kept.
func (s *webhookService) storeUpsert(ctx context.Context, inst domainInstance.Instance, item domainWebhook.MessageUpsertData) (bool, error) {
	contact, ok := utils.ParseRemoteJID(item.Key.RemoteJID)
	if !ok || contact.IsBroadcast {
		logrus.Debugf("[WEBHOOK] dropping message to %q", item.Key.RemoteJID)
		return false, nil
	}

	direction := domainChat.DirectionInbound
	if item.Key.FromMe {
		direction = domainChat.DirectionOutbound
	}
	if direction == domainChat.DirectionInbound && contact.IsGroup {
		return false, nil
	}
	if item.Key.ID == "" {
		logrus.Debugf("[WEBHOOK] dropping message without id from %s", contact.JID)
		return false, nil
	}

	content := item.Message.Content()
	if content.Kind == domainChat.KindUnknown {
		logrus.Debugf("[WEBHOOK] dropping unsupported message %s (type %q)", item.Key.ID, item.MessageType)
		return false, nil
	}

	c := domainChat.Chat{
		TenantID:   inst.TenantID,
		InstanceID: inst.ID,
		RemoteJID:  contact.JID,
		IsGroup:    contact.IsGroup,
	}
	if direction == domainChat.DirectionInbound {
		c.DisplayName = item.PushName
	}
	c, err := s.chats.UpsertChat(ctx, c)
	if err != nil {
		return false, err
	}

	msg := domainChat.Message{
		GatewayMessageID: item.Key.ID,
		RemoteJID:        contact.JID,
		Direction:        direction,
		Content:          content,
		Status:           domainChat.StatusSent,
		Timestamp:        time.Now().UTC(),
	}
	if direction == domainChat.DirectionInbound {
		msg.PushName = item.PushName
	}
	if item.Status != "" {
		msg.Status = domainChat.MapGatewayStatus(item.Status)
	}
	if item.MessageTimestamp > 0 {
		msg.Timestamp = time.Unix(int64(item.MessageTimestamp), 0).UTC()
	}

	result, err := s.chats.AppendOrUpdateMessage(ctx, c, msg)
	if err != nil {
		return false, err
	}
	if result.Inserted && direction == domainChat.DirectionInbound {
		s.dispatchReply(ctx, inst, c, result.Message)
	}
	return true, nil
}

func (s *webhookService) dispatchReply(ctx context.Context, inst domainInstance.Instance, c domainChat.Chat, msg domainChat.Message) {
	if s.responder == nil {
		return
	}
	request := domainBot.RespondRequest{
		TenantID:     inst.TenantID,
		InstanceName: inst.Name,
		Chat:         c,
		Message:      msg,
	}
	handler := func(jobCtx context.Context) error {
		_, err := s.responder.Respond(jobCtx, request)
		return err
	}

	if s.dispatcher == nil {
		if err := handler(ctx); err != nil {
			logrus.WithError(err).Warnf("[WEBHOOK] auto reply failed for %s", c.RemoteJID)
		}
		return
	}
	job := msgworker.MessageJob{InstanceID: inst.ID, ChatJID: c.RemoteJID, Handler: handler}
	if !s.dispatcher.TryDispatch(job) {
		logrus.Warnf("[WEBHOOK] worker queue full, auto reply skipped for %s/%s", inst.Name, c.RemoteJID)
	}
}

func (s *webhookService) handleUpdate(ctx context.Context, tenantID string, event domainWebhook.Event) (domainWebhook.Outcome, error) {
	items, err := domainWebhook.DecodeList[domainWebhook.MessageUpdateData](event.Data)
	if err != nil {
		logrus.WithError(err).Warnf("[WEBHOOK] undecodable messages.update for %s", event.Instance)
		return domainWebhook.OutcomeDropped, nil
	}

	outcome := domainWebhook.OutcomeDropped
	var errs []error
	for _, item := range items {
		id := item.GatewayMessageID()
		if id == "" {
			continue
		}
		status := domainChat.MapGatewayStatus(item.Status)
		applied, err := s.chats.ApplyStatus(ctx, tenantID, id, status)
		if err != nil {
			errs = append(errs, fmt.Errorf("status %s: %w", id, err))
			continue
		}
		if !applied {
			logrus.Debugf("[WEBHOOK] status %s for %s parked or stale", status, id)
		}
		outcome = domainWebhook.OutcomeProcessed
	}
	return outcome, errors.Join(errs...)
}

func (s *webhookService) handleConnection(ctx context.Context, tenantID string, event domainWebhook.Event) (domainWebhook.Outcome, error) {
	var data domainWebhook.ConnectionUpdateData
	if err := decodeObject(event.Data, &data); err != nil {
		logrus.WithError(err).Warnf("[WEBHOOK] undecodable connection.update for %s", event.Instance)
		return domainWebhook.OutcomeDropped, nil
	}

	_, err := s.instances.HandleConnectionUpdate(ctx, tenantID, event.Instance, domainInstance.ConnectionUpdate{
		State: data.State,
		Profile: domainInstance.Profile{
			Name:       data.ProfileName,
			Number:     data.PhoneNumber(),
			PictureURL: data.ProfilePictureURL,
		},
	})
	return instanceOutcome(tenantID, event, err)
}

func (s *webhookService) handleQRCode(ctx context.Context, tenantID string, event domainWebhook.Event) (domainWebhook.Outcome, error) {
	var data domainWebhook.QRCodeData
	if err := decodeObject(event.Data, &data); err != nil {
		logrus.WithError(err).Warnf("[WEBHOOK] undecodable qrcode.updated for %s", event.Instance)
		return domainWebhook.OutcomeDropped, nil
	}

	code := data.QRCode.Code
	if code == "" {
		code = data.QRCode.Base64
	}
	update := domainInstance.QRCodeUpdate{Code: code}
	if data.QRCode.PairingCode != nil {
		update.PairingCode = *data.QRCode.PairingCode
	}

	_, err := s.instances.HandleQRCodeUpdate(ctx, tenantID, event.Instance, update)
	return instanceOutcome(tenantID, event, err)
}

func instanceOutcome(tenantID string, event domainWebhook.Event, err error) (domainWebhook.Outcome, error) {
	switch {
	case err == nil:
		return domainWebhook.OutcomeProcessed, nil
	case errors.Is(err, domainInstance.ErrInstanceNotFound):
		logrus.Warnf("[WEBHOOK] %s for unknown instance %s/%s", event.Event, tenantID, event.Instance)
		return domainWebhook.OutcomeIgnored, nil
	default:
		return domainWebhook.OutcomeFailed, err
	}
}

// decodeObject accepts a bare object or a one-element array.
func decodeObject[T any](raw []byte, out *T) error {
	items, err := domainWebhook.DecodeList[T](raw)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("empty payload")
	}
	*out = items[0]
	return nil
}
