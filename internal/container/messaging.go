package container

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/samber/do"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/delivery"
	"github.com/serroba/linkbot/internal/messaging"
	"github.com/serroba/linkbot/internal/telegram"
	"go.uber.org/zap"
)

// MessagingPackage provides the outbound bus: *messaging.PublisherGroup, the
// chat.Sender outbox publishing to it, and *messaging.ConsumerGroup running
// the delivery consumer.
func MessagingPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (message.Subscriber, error) {
		return newSubscriber(i)
	})

	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i))

		switch opts.Bus {
		case BusMemory:
			// The in-process bus is one value serving both sides.
			sub := do.MustInvoke[message.Subscriber](i)
			pub, ok := sub.(message.Publisher)
			if !ok {
				return nil, fmt.Errorf("memory bus subscriber is not a publisher")
			}

			return messaging.NewPublisherGroup(pub), nil
		case BusRedis:
			client := do.MustInvoke[*RedisClient](i)

			pub, err := messaging.NewRedisPublisher(client.Client, logger)
			if err != nil {
				return nil, err
			}

			return messaging.NewPublisherGroup(pub), nil
		default:
			return nil, fmt.Errorf("unknown bus %q", opts.Bus)
		}
	})

	do.Provide(i, func(i *do.Injector) (chat.Sender, error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return delivery.NewOutbox(group.Publisher()), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		sub := do.MustInvoke[message.Subscriber](i)

		handler := delivery.NewHandler(
			do.MustInvoke[*telegram.Sender](i),
			delivery.Classifier{
				IsPermanent: telegram.IsPermanent,
				RetryAfter:  telegram.RetryAfter,
			},
			logger,
		)

		var consumerOpts []messaging.ConsumerOption

		// Streams outlive the process, so exhausted messages are kept for inspection.
		if opts.Bus == BusRedis {
			pubs := do.MustInvoke[*messaging.PublisherGroup](i)
			consumerOpts = append(consumerOpts, messaging.WithPoisonQueue(pubs.Publisher(), delivery.TopicPoison))
		}

		group := messaging.NewConsumerGroup(sub, logger)
		group.Add(delivery.NewConsumer(sub, handler, logger, consumerOpts...))

		return group, nil
	})
}

func newSubscriber(i *do.Injector) (message.Subscriber, error) {
	opts := do.MustInvoke[*Options](i)
	logger := messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i))

	switch opts.Bus {
	case BusMemory:
		return messaging.NewMemoryBus(logger), nil
	case BusRedis:
		client := do.MustInvoke[*RedisClient](i)

		sub, err := messaging.NewRedisSubscriber(client.Client, deliveryConsumerGroup, opts.ConsumerName, logger)
		if err != nil {
			return nil, err
		}

		return sub, nil
	default:
		return nil, fmt.Errorf("unknown bus %q", opts.Bus)
	}
}
