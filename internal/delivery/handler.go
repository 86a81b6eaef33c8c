package delivery

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/messaging"
	"go.uber.org/zap"
)

// Classifier sorts transport errors. Either func may be nil.
type Classifier struct {
	// IsPermanent reports errors that resending will not fix.
	IsPermanent func(error) bool
	// RetryAfter returns the delay the transport asked for before resending.
	RetryAfter func(error) (time.Duration, bool)
}

// Handler sends queued messages through the chat transport.
type Handler struct {
	sender     chat.Sender
	classifier Classifier
	logger     *zap.Logger
}

// NewHandler creates a delivery handler.
func NewHandler(sender chat.Sender, classifier Classifier, logger *zap.Logger) *Handler {
	return &Handler{
		sender:     sender,
		classifier: classifier,
		logger:     logger,
	}
}

// Handle delivers one queued message.
func (h *Handler) Handle(ctx context.Context, msg *chat.OutboundMessage) error {
	if err := h.sender.Send(ctx, *msg); err != nil {
		return h.classify(err)
	}

	h.logger.Debug("message delivered",
		zap.Int64("chat_id", int64(msg.ChatID)),
		zap.Int("reply_to", msg.ReplyTo),
	)

	return nil
}

func (h *Handler) classify(err error) error {
	if h.classifier.IsPermanent != nil && h.classifier.IsPermanent(err) {
		return messaging.Permanent(err)
	}

	if h.classifier.RetryAfter != nil {
		if delay, ok := h.classifier.RetryAfter(err); ok {
			return messaging.RetryAfter(err, delay)
		}
	}

	return err
}

// NewConsumer returns a consumer delivering messages from TopicOutbound.
func NewConsumer(
	subscriber message.Subscriber,
	handler *Handler,
	logger *zap.Logger,
	opts ...messaging.ConsumerOption,
) *messaging.Consumer[chat.OutboundMessage] {
	return messaging.NewConsumer(subscriber, TopicOutbound, handler.Handle, logger, opts...)
}
