package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkbot/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closeErr   error
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	return m.closeErr
}

type publishTestPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ctxKey struct{}

func TestNewPublishFunc(t *testing.T) {
	t.Run("publishes payload as json", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[publishTestPayload](mock, "test.topic")

		err := publish(context.Background(), &publishTestPayload{ID: "123", Name: "test"})

		require.NoError(t, err)
		assert.Equal(t, "test.topic", mock.topic)
		require.Len(t, mock.messages, 1)
		assert.JSONEq(t, `{"id":"123","name":"test"}`, string(mock.messages[0].Payload))
		assert.Equal(t, "application/json", mock.messages[0].Metadata.Get(messaging.MetadataContentType))
		assert.NotEmpty(t, mock.messages[0].UUID)
	})

	t.Run("carries the caller context", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[publishTestPayload](mock, "test.topic")
		ctx := context.WithValue(context.Background(), ctxKey{}, "run-1")

		require.NoError(t, publish(ctx, &publishTestPayload{ID: "1"}))

		assert.Equal(t, "run-1", mock.messages[0].Context().Value(ctxKey{}))
	})

	t.Run("wraps publish errors with the topic", func(t *testing.T) {
		publishErr := errors.New("publish error")
		mock := &mockPublisher{publishErr: publishErr}
		publish := messaging.NewPublishFunc[publishTestPayload](mock, "test.topic")

		err := publish(context.Background(), &publishTestPayload{ID: "123"})

		require.ErrorIs(t, err, publishErr)
		assert.Contains(t, err.Error(), "test.topic")
	})
}

func TestPublisherGroup(t *testing.T) {
	t.Run("returns underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		assert.Equal(t, mock, group.Publisher())
	})

	t.Run("shuts down successfully", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		err := group.Shutdown()

		require.NoError(t, err)
	})

	t.Run("returns error when close fails", func(t *testing.T) {
		mock := &mockPublisher{closeErr: errors.New("close error")}
		group := messaging.NewPublisherGroup(mock)

		err := group.Shutdown()

		assert.Error(t, err)
	})
}
