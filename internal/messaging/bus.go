package messaging

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const memoryBufferSize = 256

// NewMemoryBus returns an in-process pub/sub usable as both publisher and
// subscriber. Publish returns once every subscriber acked the message, so
// publishers observe delivery order and nothing is left buffered on shutdown.
// Messages published before anyone subscribes are dropped.
func NewMemoryBus(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            memoryBufferSize,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}

// NewRedisPublisher returns a publisher writing to Redis streams.
func NewRedisPublisher(client redis.UniversalClient, logger watermill.LoggerAdapter) (*redisstream.Publisher, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create redis stream publisher: %w", err)
	}

	return pub, nil
}

// NewRedisSubscriber returns a subscriber reading Redis streams as a member
// of consumerGroup. Each stream entry is delivered to one group member.
func NewRedisSubscriber(
	client redis.UniversalClient,
	consumerGroup, consumer string,
	logger watermill.LoggerAdapter,
) (*redisstream.Subscriber, error) {
	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup,
		Consumer:      consumer,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create redis stream subscriber: %w", err)
	}

	return sub, nil
}
