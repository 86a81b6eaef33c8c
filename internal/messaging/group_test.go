package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/linkbot/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRunnable struct {
	started     bool
	shutdown    bool
	startErr    error
	shutdownErr error
}

func (m *mockRunnable) Start(_ context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}

	m.started = true

	return nil
}

func (m *mockRunnable) Shutdown() error {
	m.shutdown = true

	return m.shutdownErr
}

func TestConsumerGroup_Start(t *testing.T) {
	t.Run("starts all consumers", func(t *testing.T) {
		sub := newMockSubscriber()
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		consumer1 := &mockRunnable{}
		consumer2 := &mockRunnable{}

		group.Add(consumer1)
		group.Add(consumer2)

		err := group.Start(context.Background())

		require.NoError(t, err)
		assert.True(t, consumer1.started)
		assert.True(t, consumer2.started)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		sub := newMockSubscriber()
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		consumer1 := &mockRunnable{}
		consumer2 := &mockRunnable{startErr: errors.New("start error")}

		group.Add(consumer1)
		group.Add(consumer2)

		err := group.Start(context.Background())

		require.Error(t, err)
		assert.True(t, consumer1.started)
		assert.True(t, consumer1.shutdown)
		assert.False(t, consumer2.started)
	})

	t.Run("names the failing consumer", func(t *testing.T) {
		startErr := errors.New("redis unreachable")
		group := messaging.NewConsumerGroup(newMockSubscriber(), zap.NewNop())
		group.Add(&mockRunnable{})
		group.Add(&mockRunnable{startErr: startErr})

		err := group.Start(context.Background())

		require.ErrorIs(t, err, startErr)
		assert.Contains(t, err.Error(), "start consumer 1")
	})

	t.Run("starts an empty group", func(t *testing.T) {
		group := messaging.NewConsumerGroup(newMockSubscriber(), zap.NewNop())

		assert.NoError(t, group.Start(context.Background()))
	})
}

func TestConsumerGroup_Subscriber(t *testing.T) {
	sub := newMockSubscriber()
	group := messaging.NewConsumerGroup(sub, zap.NewNop())

	assert.Same(t, sub, group.Subscriber())
}

func TestConsumerGroup_Shutdown(t *testing.T) {
	t.Run("shuts down all consumers", func(t *testing.T) {
		sub := newMockSubscriber()
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		consumer1 := &mockRunnable{}
		consumer2 := &mockRunnable{}

		group.Add(consumer1)
		group.Add(consumer2)
		_ = group.Start(context.Background())

		err := group.Shutdown()

		require.NoError(t, err)
		assert.True(t, consumer1.shutdown)
		assert.True(t, consumer2.shutdown)
		assert.True(t, sub.closed)
	})

	t.Run("returns all errors and shuts down all", func(t *testing.T) {
		sub := newMockSubscriber()
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		consumer1 := &mockRunnable{shutdownErr: errors.New("shutdown error 1")}
		consumer2 := &mockRunnable{shutdownErr: errors.New("shutdown error 2")}

		group.Add(consumer1)
		group.Add(consumer2)
		_ = group.Start(context.Background())

		err := group.Shutdown()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "shutdown error 1")
		assert.Contains(t, err.Error(), "shutdown error 2")
		assert.True(t, consumer1.shutdown)
		assert.True(t, consumer2.shutdown) // Still attempted
	})

	t.Run("joins consumer and subscriber errors", func(t *testing.T) {
		consumerErr := errors.New("consumer stuck")
		closeErr := errors.New("connection lost")
		sub := newMockSubscriber()
		sub.closeErr = closeErr
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		group.Add(&mockRunnable{shutdownErr: consumerErr})
		_ = group.Start(context.Background())

		err := group.Shutdown()

		require.ErrorIs(t, err, consumerErr)
		require.ErrorIs(t, err, closeErr)
		assert.Contains(t, err.Error(), "close subscriber: connection lost")
		assert.True(t, sub.closed)
	})

	t.Run("closes subscriber without consumers", func(t *testing.T) {
		sub := newMockSubscriber()
		group := messaging.NewConsumerGroup(sub, zap.NewNop())

		require.NoError(t, group.Shutdown())
		assert.True(t, sub.closed)
	})
}
