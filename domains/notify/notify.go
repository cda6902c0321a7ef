package notify

import (
	"context"

	"github.com/AzielCF/az-juris/domains/chat"
	"github.com/AzielCF/az-juris/domains/instance"
)

// Event type names shared by the websocket feed and the broker routing keys.
const (
	EventInstanceState = "whatsapp.instance.state"
	EventMessageStored = "whatsapp.message.stored"
)

// INotifier receives committed changes. Implementations must not block the
// caller for long and must not fail it.
type INotifier interface {
	InstanceChanged(ctx context.Context, inst instance.Instance)
	MessageStored(ctx context.Context, c chat.Chat, msg chat.Message)
}

// Multi fans every notification out to each non-nil notifier.
func Multi(notifiers ...INotifier) INotifier {
	var list multi
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}
	return list
}

type multi []INotifier

func (m multi) InstanceChanged(ctx context.Context, inst instance.Instance) {
	for _, n := range m {
		n.InstanceChanged(ctx, inst)
	}
}

func (m multi) MessageStored(ctx context.Context, c chat.Chat, msg chat.Message) {
	for _, n := range m {
		n.MessageStored(ctx, c, msg)
	}
}
