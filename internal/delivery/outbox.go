// Package delivery queues outbound chat messages on the message bus and
// sends them to the chat transport from a consumer.
package delivery

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/messaging"
)

const (
	TopicOutbound = "chat.outbound"
	// TopicPoison receives messages whose delivery kept failing.
	TopicPoison = "chat.outbound.poison"
)

// Outbox is a chat.Sender that enqueues messages instead of sending them.
type Outbox struct {
	publish messaging.Publish[chat.OutboundMessage]
}

// NewOutbox creates an outbox publishing to TopicOutbound.
func NewOutbox(publisher message.Publisher) *Outbox {
	return &Outbox{
		publish: messaging.NewPublishFunc[chat.OutboundMessage](publisher, TopicOutbound),
	}
}

func (o *Outbox) Send(ctx context.Context, msg chat.OutboundMessage) error {
	if err := o.publish(ctx, &msg); err != nil {
		return fmt.Errorf("enqueue reply for chat %d: %w", msg.ChatID, err)
	}

	return nil
}
