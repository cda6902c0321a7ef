package usecase

import (
	"context"
	"testing"
	"time"

	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSendService_RejectsDisconnectedBeforeGateway(t *testing.T) {
	store := newTestStore(t)
	gw := new(mockGateway)
	chats := NewChatService(store.chats, store.instances, nil, nil)
	svc := NewSendService(store.instances, gw, chats)
	seedInstance(t, store, "t1", "vendas", domainInstance.StateDisconnected)

	_, err := svc.SendText(context.Background(), "t1", "vendas", domainChat.SendMessageRequest{Phone: "5511988887777", Message: "Olá"})
	assert.ErrorIs(t, err, domainInstance.ErrInstanceNotConnected)

	var generic pkgError.GenericError
	require.ErrorAs(t, err, &generic)
	assert.Equal(t, "INSTANCE_NOT_CONNECTED", generic.ErrCode())
	gw.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendService_SendAndRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	gw := new(mockGateway)
	chats := NewChatService(store.chats, store.instances, nil, nil)
	svc := NewSendService(store.instances, gw, chats)
	seedInstance(t, store, "t1", "vendas", domainInstance.StateConnected)

	gw.On("SendText", mock.Anything, "t1", "vendas", domainGateway.SendTextRequest{Number: "5511988887777", Text: "Sua audiência foi marcada"}).
		Return(domainGateway.SendResult{
			MessageID: "BAE5OP",
			RemoteJID: "5511988887777@s.whatsapp.net",
			Status:    "PENDING",
			Timestamp: time.Unix(1717171717, 0),
		}, nil)

	msg, err := svc.SendText(ctx, "t1", "vendas", domainChat.SendMessageRequest{Phone: "+55 (11) 98888-7777", Message: "Sua audiência foi marcada"})
	require.NoError(t, err)
	assert.Equal(t, "BAE5OP", msg.GatewayMessageID)
	assert.Equal(t, domainChat.DirectionOutbound, msg.Direction)
	assert.Equal(t, domainChat.StatusSent, msg.Status)

	list, err := chats.ListChats(ctx, "t1", "vendas")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "5511988887777@s.whatsapp.net", list[0].RemoteJID)
}

func TestSendService_Validation(t *testing.T) {
	store := newTestStore(t)
	gw := new(mockGateway)
	svc := NewSendService(store.instances, gw, NewChatService(store.chats, store.instances, nil, nil))

	_, err := svc.SendText(context.Background(), "t1", "vendas", domainChat.SendMessageRequest{Phone: "", Message: "x"})
	assert.IsType(t, pkgError.ValidationError(""), err)

	_, err = svc.SendText(context.Background(), "", "vendas", domainChat.SendMessageRequest{Phone: "5511988887777", Message: "x"})
	assert.ErrorIs(t, err, domainInstance.ErrTenantRequired)
}
