package delivery_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/delivery"
	"github.com/serroba/linkbot/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	errBlocked = errors.New("bot was blocked by the user")
	errTimeout = errors.New("timeout")
	errFlood   = errors.New("too many requests")
)

var fastRetry = messaging.RetryPolicy{
	MaxRetries:      3,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	Multiplier:      2,
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []chat.OutboundMessage
	attempts int
	err      error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{}
}

func (r *recordingSender) Send(_ context.Context, msg chat.OutboundMessage) error {
	r.mu.Lock()
	r.attempts++
	r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()

	return nil
}

func (r *recordingSender) attemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.attempts
}

func (r *recordingSender) messages() []chat.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]chat.OutboundMessage(nil), r.sent...)
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errTimeout }
func (failingPublisher) Close() error                              { return nil }

func TestOutbox(t *testing.T) {
	t.Run("delivers through the bus in order", func(t *testing.T) {
		bus := messaging.NewMemoryBus(watermill.NopLogger{})
		sender := newRecordingSender()
		consumer := delivery.NewConsumer(bus, delivery.NewHandler(sender, delivery.Classifier{}, zap.NewNop()), zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))

		outbox := delivery.NewOutbox(bus)
		first := chat.OutboundMessage{ChatID: 1, Text: "notice"}
		second := chat.OutboundMessage{ChatID: 1, Text: "reply", ReplyTo: 9}

		require.NoError(t, outbox.Send(context.Background(), first))
		require.NoError(t, outbox.Send(context.Background(), second))

		// The memory bus returns from Send only once the message was delivered.
		assert.Equal(t, []chat.OutboundMessage{first, second}, sender.messages())

		require.NoError(t, consumer.Shutdown())
		require.NoError(t, bus.Close())
	})

	t.Run("gives up on a flooded chat after bounded attempts", func(t *testing.T) {
		bus := messaging.NewMemoryBus(watermill.NopLogger{})
		sender := newRecordingSender()
		sender.err = errFlood
		classifier := delivery.Classifier{
			RetryAfter: func(err error) (time.Duration, bool) {
				return time.Millisecond, errors.Is(err, errFlood)
			},
		}
		consumer := delivery.NewConsumer(
			bus,
			delivery.NewHandler(sender, classifier, zap.NewNop()),
			zap.NewNop(),
			messaging.WithRetryPolicy(fastRetry),
		)

		require.NoError(t, consumer.Start(context.Background()))

		outbox := delivery.NewOutbox(bus)
		require.NoError(t, outbox.Send(context.Background(), chat.OutboundMessage{ChatID: 1, Text: "reply"}))

		assert.Equal(t, fastRetry.MaxRetries+1, sender.attemptCount())
		assert.Empty(t, sender.messages())

		require.NoError(t, consumer.Shutdown())
		require.NoError(t, bus.Close())
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		bus := messaging.NewMemoryBus(watermill.NopLogger{})
		sender := newRecordingSender()
		sender.err = errBlocked
		classifier := delivery.Classifier{
			IsPermanent: func(err error) bool { return errors.Is(err, errBlocked) },
		}
		consumer := delivery.NewConsumer(
			bus,
			delivery.NewHandler(sender, classifier, zap.NewNop()),
			zap.NewNop(),
			messaging.WithRetryPolicy(fastRetry),
		)

		require.NoError(t, consumer.Start(context.Background()))

		outbox := delivery.NewOutbox(bus)
		require.NoError(t, outbox.Send(context.Background(), chat.OutboundMessage{ChatID: 1, Text: "reply"}))

		assert.Equal(t, 1, sender.attemptCount())

		require.NoError(t, consumer.Shutdown())
		require.NoError(t, bus.Close())
	})

	t.Run("returns publish errors", func(t *testing.T) {
		outbox := delivery.NewOutbox(failingPublisher{})

		err := outbox.Send(context.Background(), chat.OutboundMessage{ChatID: 3, Text: "x"})

		require.ErrorIs(t, err, errTimeout)
		assert.Contains(t, err.Error(), "chat 3")
	})
}

func TestHandler(t *testing.T) {
	classifier := delivery.Classifier{
		IsPermanent: func(err error) bool { return errors.Is(err, errBlocked) },
		RetryAfter: func(err error) (time.Duration, bool) {
			return 3 * time.Second, errors.Is(err, errFlood)
		},
	}

	t.Run("sends the message", func(t *testing.T) {
		sender := newRecordingSender()
		h := delivery.NewHandler(sender, classifier, zap.NewNop())

		err := h.Handle(context.Background(), &chat.OutboundMessage{ChatID: 2, Text: "hi"})

		require.NoError(t, err)
		assert.Len(t, sender.messages(), 1)
	})

	t.Run("marks permanent failures", func(t *testing.T) {
		sender := newRecordingSender()
		sender.err = errBlocked
		h := delivery.NewHandler(sender, classifier, zap.NewNop())

		err := h.Handle(context.Background(), &chat.OutboundMessage{ChatID: 2, Text: "hi"})

		require.ErrorIs(t, err, messaging.ErrPermanent)
		assert.ErrorIs(t, err, errBlocked)
	})

	t.Run("leaves transient failures retryable", func(t *testing.T) {
		sender := newRecordingSender()
		sender.err = errTimeout
		h := delivery.NewHandler(sender, classifier, zap.NewNop())

		err := h.Handle(context.Background(), &chat.OutboundMessage{ChatID: 2, Text: "hi"})

		require.ErrorIs(t, err, errTimeout)
		assert.NotErrorIs(t, err, messaging.ErrPermanent)
	})

	t.Run("attaches the requested retry delay", func(t *testing.T) {
		sender := newRecordingSender()
		sender.err = errFlood
		h := delivery.NewHandler(sender, classifier, zap.NewNop())

		err := h.Handle(context.Background(), &chat.OutboundMessage{ChatID: 2, Text: "hi"})

		var retryAfter *messaging.RetryAfterError
		require.ErrorAs(t, err, &retryAfter)
		assert.Equal(t, 3*time.Second, retryAfter.Delay)
		assert.ErrorIs(t, err, errFlood)
	})

	t.Run("passes errors through without a classifier", func(t *testing.T) {
		sender := newRecordingSender()
		sender.err = errBlocked
		h := delivery.NewHandler(sender, delivery.Classifier{}, zap.NewNop())

		err := h.Handle(context.Background(), &chat.OutboundMessage{ChatID: 2, Text: "hi"})

		assert.Equal(t, errBlocked, err)
	})
}
