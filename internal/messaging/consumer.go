package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.uber.org/zap"
)

// ErrPermanent marks a handler failure that redelivery cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the consumer acks the message without retrying.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// RetryAfterError carries the delay a remote side asked for before the next
// attempt.
type RetryAfterError struct {
	Err   error
	Delay time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.Delay, e.Err)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// maxRetryAfter caps a requested delay so one message cannot stall a
// consumer indefinitely.
const maxRetryAfter = time.Minute

// RetryAfter wraps err with a requested delay.
func RetryAfter(err error, delay time.Duration) error {
	return &RetryAfterError{Err: err, Delay: delay}
}

// RetryPolicy bounds redelivery of a failing message. Attempts back off
// exponentially from InitialInterval, capped at MaxInterval.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy gives up after about 15 seconds of backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      5,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     30 * time.Second,
	Multiplier:      2,
}

type consumerConfig struct {
	retry       RetryPolicy
	poison      message.Publisher
	poisonTopic string
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerConfig)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) ConsumerOption {
	return func(c *consumerConfig) {
		c.retry = policy
	}
}

// WithPoisonQueue publishes messages that exhausted their retries to topic
// instead of dropping them.
func WithPoisonQueue(publisher message.Publisher, topic string) ConsumerOption {
	return func(c *consumerConfig) {
		c.poison = publisher
		c.poisonTopic = topic
	}
}

// Handler processes a single decoded payload.
type Handler[T any] func(ctx context.Context, payload *T) error

// Consumer subscribes to a topic and processes messages with a typed handler.
// Failing messages are retried with backoff, then dropped or sent to the
// poison queue; a message is never nacked back onto the subscriber.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	process    message.HandlerFunc
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewConsumer creates a new consumer for a specific payload type.
func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
	opts ...ConsumerOption,
) *Consumer[T] {
	cfg := consumerConfig{retry: DefaultRetryPolicy}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
		done:       make(chan struct{}),
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.retry.MaxRetries,
		InitialInterval: cfg.retry.InitialInterval,
		MaxInterval:     cfg.retry.MaxInterval,
		Multiplier:      cfg.retry.Multiplier,
		Logger:          NewZapLogger(c.logger),
	}
	c.process = retry.Middleware(c.attempt)

	if cfg.poison != nil {
		poison, err := middleware.PoisonQueue(cfg.poison, cfg.poisonTopic)
		if err != nil {
			c.logger.Error("poison queue disabled", zap.Error(err))
		} else {
			c.process = poison(c.process)
		}
	}

	return c
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in the background until ctx is
// cancelled or Shutdown is called.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		c.cancel()
		close(c.done)

		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	go c.consumeLoop(ctx, msgs)

	return nil
}

func (c *Consumer[T]) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer[T]) handleMessage(ctx context.Context, msg *message.Message) {
	msg.SetContext(ctx)

	if _, err := c.process(msg); err != nil {
		c.logger.Error("dropping message after retries",
			zap.String("message_uuid", msg.UUID),
			zap.Error(err),
		)
	}

	msg.Ack()
}

// attempt runs the handler once. Only errors worth retrying are returned.
func (c *Consumer[T]) attempt(msg *message.Message) ([]*message.Message, error) {
	logger := c.logger.With(zap.String("message_uuid", msg.UUID))

	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.Error("dropping undecodable message", zap.Error(err))

		return nil, nil
	}

	ctx := msg.Context()

	err := c.handler(ctx, &payload)
	if err == nil {
		logger.Debug("processed message")

		return nil, nil
	}

	if errors.Is(err, ErrPermanent) {
		logger.Warn("dropping message after permanent failure", zap.Error(err))

		return nil, nil
	}

	logger.Warn("failed to handle message", zap.Error(err))

	var retryAfter *RetryAfterError
	if errors.As(err, &retryAfter) {
		wait(ctx, min(retryAfter.Delay, maxRetryAfter))
	}

	return nil, err
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Shutdown stops the consumer and waits for the in-flight message to complete.
func (c *Consumer[T]) Shutdown() error {
	if c.cancel != nil {
		c.cancel()
	}

	<-c.done

	return nil
}
