package usecase

import (
	"context"
	"strings"

	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/validations"
	"github.com/sirupsen/logrus"
)

type sendService struct {
	instances domainInstance.IInstanceRepository
	gateway   domainGateway.IGatewayClient
	chats     domainChat.IChatUsecase
}

func NewSendService(instances domainInstance.IInstanceRepository, gateway domainGateway.IGatewayClient, chats domainChat.IChatUsecase) domainChat.ISendUsecase {
	return &sendService{instances: instances, gateway: gateway, chats: chats}
}

// SendText sends an operator message. Instances that are not connected are
// rejected before the gateway is called.
func (s *sendService) SendText(ctx context.Context, tenantID, instanceName string, request domainChat.SendMessageRequest) (domainChat.Message, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domainChat.Message{}, err
	}
	if err := validations.ValidateSendMessage(ctx, request); err != nil {
		return domainChat.Message{}, err
	}

	inst, err := s.instances.GetByName(ctx, tenantID, strings.TrimSpace(instanceName))
	if err != nil {
		return domainChat.Message{}, err
	}
	if inst.State != domainInstance.StateConnected {
		return domainChat.Message{}, domainInstance.ErrInstanceNotConnected
	}

	contact, _ := utils.ParseRemoteJID(request.Phone)
	number := contact.User
	if contact.IsGroup {
		number = contact.JID
	}

	res, err := s.gateway.SendText(ctx, tenantID, inst.Name, domainGateway.SendTextRequest{Number: number, Text: request.Message})
	if err != nil {
		logrus.WithError(err).Warnf("[GATEWAY] send via %s/%s failed", tenantID, inst.Name)
		return domainChat.Message{}, err
	}

	remote := contact.JID
	if res.RemoteJID != "" {
		remote = res.RemoteJID
	}
	stored, err := s.chats.RecordOutbound(ctx, domainChat.RecordOutboundRequest{
		TenantID:         tenantID,
		InstanceID:       inst.ID,
		RemoteJID:        remote,
		GatewayMessageID: res.MessageID,
		Text:             request.Message,
		Status:           domainChat.MapGatewayStatus(res.Status),
		Timestamp:        res.Timestamp,
	})
	if err != nil {
		return domainChat.Message{}, err
	}
	return stored.Message, nil
}
