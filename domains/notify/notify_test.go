package notify

import (
	"context"
	"testing"

	"github.com/AzielCF/az-juris/domains/chat"
	"github.com/AzielCF/az-juris/domains/instance"
	"github.com/stretchr/testify/assert"
)

type countingNotifier struct {
	instances int
	messages  int
}

func (c *countingNotifier) InstanceChanged(context.Context, instance.Instance) { c.instances++ }
func (c *countingNotifier) MessageStored(context.Context, chat.Chat, chat.Message) {
	c.messages++
}

func TestMultiSkipsNilAndFansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	n := Multi(a, nil, b)

	n.InstanceChanged(context.Background(), instance.Instance{})
	n.MessageStored(context.Background(), chat.Chat{}, chat.Message{})
	n.MessageStored(context.Background(), chat.Chat{}, chat.Message{})

	assert.Equal(t, 1, a.instances)
	assert.Equal(t, 2, b.messages)

	assert.NotPanics(t, func() { Multi().InstanceChanged(context.Background(), instance.Instance{}) })
}
