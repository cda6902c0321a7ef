package usecase

import (
	"context"
	"strings"
	"time"

	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	domainLegalCase "github.com/AzielCF/az-juris/domains/legalcase"
	domainNotify "github.com/AzielCF/az-juris/domains/notify"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/sirupsen/logrus"
)

type chatService struct {
	repo      domainChat.IChatRepository
	instances domainInstance.IInstanceRepository
	cases     domainLegalCase.ICaseRepository
	notifier  domainNotify.INotifier
}

// NewChatService builds the conversation store. cases may be nil when no
// case data is available; chats are then never linked.
func NewChatService(
	repo domainChat.IChatRepository,
	instances domainInstance.IInstanceRepository,
	cases domainLegalCase.ICaseRepository,
	notifier domainNotify.INotifier,
) domainChat.IChatUsecase {
	if notifier == nil {
		notifier = domainNotify.Multi()
	}
	return &chatService{repo: repo, instances: instances, cases: cases, notifier: notifier}
}

// UpsertChat resolves or creates the chat for (instance, remote JID) and
// links a one-to-one chat to the contact's case on first sight.
func (s *chatService) UpsertChat(ctx context.Context, c domainChat.Chat) (domainChat.Chat, error) {
	tenantID, err := requireTenant(c.TenantID)
	if err != nil {
		return domainChat.Chat{}, err
	}
	c.TenantID = tenantID
	if c.InstanceID == "" || c.RemoteJID == "" {
		return domainChat.Chat{}, pkgError.ValidationError("chat: instance and remote jid are required.")
	}

	stored, err := s.repo.UpsertChat(ctx, c)
	if err != nil {
		return domainChat.Chat{}, err
	}
	if stored.IsGroup || stored.CaseID != "" || s.cases == nil {
		return stored, nil
	}

	contact, ok := utils.ParseRemoteJID(stored.RemoteJID)
	if !ok {
		return stored, nil
	}
	found, ok, err := s.cases.FindByPhone(ctx, tenantID, utils.PhoneCandidates(contact.User))
	if err != nil {
		logrus.WithError(err).Warnf("[CHATSTORE] case lookup failed for %s", stored.RemoteJID)
		return stored, nil
	}
	if !ok {
		return stored, nil
	}
	if err := s.repo.LinkCase(ctx, stored.ID, found.ID); err != nil {
		logrus.WithError(err).Warnf("[CHATSTORE] failed to link chat %s to case %s", stored.ID, found.ID)
		return stored, nil
	}
	stored.CaseID = found.ID
	return stored, nil
}

// AppendOrUpdateMessage stores msg in c. A repeated gateway id only moves
// the stored status forward.
func (s *chatService) AppendOrUpdateMessage(ctx context.Context, c domainChat.Chat, msg domainChat.Message) (domainChat.StoreResult, error) {
	if msg.GatewayMessageID == "" {
		return domainChat.StoreResult{}, pkgError.ValidationError("message: gateway message id is required.")
	}
	msg.TenantID = c.TenantID
	msg.ChatID = c.ID
	if msg.RemoteJID == "" {
		msg.RemoteJID = c.RemoteJID
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	result, err := s.repo.AppendOrUpdateMessage(ctx, msg)
	if err != nil {
		return domainChat.StoreResult{}, err
	}
	if !result.Inserted {
		logrus.Debugf("[CHATSTORE] duplicate delivery of %s, status now %s", msg.GatewayMessageID, result.Message.Status)
		return result, nil
	}

	if refreshed, err := s.repo.GetChat(ctx, c.TenantID, c.ID); err == nil {
		c = refreshed
	}
	s.notifier.MessageStored(ctx, c, result.Message)
	return result, nil
}

func (s *chatService) ApplyStatus(ctx context.Context, tenantID, gatewayMessageID string, status domainChat.Status) (bool, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return false, err
	}
	if gatewayMessageID == "" {
		return false, pkgError.ValidationError("message: gateway message id is required.")
	}
	return s.repo.ApplyStatus(ctx, tenantID, gatewayMessageID, status)
}

// RecordOutbound stores a message this system sent. The gateway echoes it
// back as a messages.upsert later; both land on the same row.
func (s *chatService) RecordOutbound(ctx context.Context, request domainChat.RecordOutboundRequest) (domainChat.StoreResult, error) {
	contact, ok := utils.ParseRemoteJID(request.RemoteJID)
	if !ok {
		return domainChat.StoreResult{}, pkgError.ValidationError("remote_jid: invalid contact.")
	}

	c, err := s.UpsertChat(ctx, domainChat.Chat{
		TenantID:   request.TenantID,
		InstanceID: request.InstanceID,
		RemoteJID:  contact.JID,
		IsGroup:    contact.IsGroup,
	})
	if err != nil {
		return domainChat.StoreResult{}, err
	}

	status := request.Status
	if status == "" {
		status = domainChat.StatusSent
	}
	return s.AppendOrUpdateMessage(ctx, c, domainChat.Message{
		GatewayMessageID: request.GatewayMessageID,
		RemoteJID:        contact.JID,
		Direction:        domainChat.DirectionOutbound,
		Content:          domainChat.Content{Kind: domainChat.KindText, Text: request.Text},
		Status:           status,
		Timestamp:        request.Timestamp,
	})
}

func (s *chatService) GetChat(ctx context.Context, tenantID, chatID string) (domainChat.Chat, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domainChat.Chat{}, err
	}
	return s.repo.GetChat(ctx, tenantID, strings.TrimSpace(chatID))
}

func (s *chatService) ListChats(ctx context.Context, tenantID, instanceName string) ([]domainChat.Chat, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	inst, err := s.instances.GetByName(ctx, tenantID, strings.TrimSpace(instanceName))
	if err != nil {
		return nil, err
	}
	return s.repo.ListChats(ctx, tenantID, inst.ID)
}

// ListMessages pages backwards from Before and returns the page oldest first.
func (s *chatService) ListMessages(ctx context.Context, tenantID, chatID string, request domainChat.ListMessagesRequest) ([]domainChat.Message, error) {
	c, err := s.GetChat(ctx, tenantID, chatID)
	if err != nil {
		return nil, err
	}

	limit := request.Limit
	switch {
	case limit <= 0:
		limit = domainChat.DefaultMessagePageSize
	case limit > domainChat.MaxMessagePageSize:
		limit = domainChat.MaxMessagePageSize
	}
	return s.repo.ListMessages(ctx, c.TenantID, c.ID, limit, request.Before)
}

func (s *chatService) MarkRead(ctx context.Context, tenantID, chatID string) error {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, tenantID, strings.TrimSpace(chatID))
}
