package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/serroba/linkbot/internal/chat"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxConcurrent = 16
	DefaultPollTimeout   = 60
)

// MessageHandler handles one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, msg chat.Message) error
}

// Poller long-polls for updates and hands each message to the handler in
// its own goroutine.
type Poller struct {
	api           BotAPI
	handler       MessageHandler
	maxConcurrent int
	pollTimeout   int
	logger        *zap.Logger
	cancel        context.CancelFunc
	done          chan struct{}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithMaxConcurrent bounds the number of messages handled at once.
func WithMaxConcurrent(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxConcurrent = n
		}
	}
}

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) PollerOption {
	return func(p *Poller) {
		p.pollTimeout = seconds
	}
}

// NewPoller creates a poller.
func NewPoller(api BotAPI, handler MessageHandler, logger *zap.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		api:           api,
		handler:       handler,
		maxConcurrent: DefaultMaxConcurrent,
		pollTimeout:   DefaultPollTimeout,
		logger:        logger,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start begins polling in the background.
func (p *Poller) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.pollTimeout
	updates := p.api.GetUpdatesChan(cfg)

	go p.run(ctx, updates)

	p.logger.Info("telegram poller started", zap.Int("max_concurrent", p.maxConcurrent))

	return nil
}

func (p *Poller) run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer close(p.done)

	var g errgroup.Group
	g.SetLimit(p.maxConcurrent)

	// In-flight messages finish even after polling stops.
	handlerCtx := context.WithoutCancel(ctx)

	defer func() {
		p.api.StopReceivingUpdates()
		_ = g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			msg, ok := MessageFromUpdate(update)
			if !ok {
				continue
			}

			g.Go(func() error {
				p.dispatch(handlerCtx, update.UpdateID, msg)

				return nil
			})
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, updateID int, msg chat.Message) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("message handler panicked",
				zap.Int("update_id", updateID),
				zap.Any("panic", r),
			)
		}
	}()

	if err := p.handler.Handle(ctx, msg); err != nil {
		p.logger.Error("failed to handle message",
			zap.Int("update_id", updateID),
			zap.Int64("chat_id", int64(msg.ChatID)),
			zap.Error(err),
		)
	}
}

// Shutdown stops polling and waits for in-flight messages.
func (p *Poller) Shutdown() error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}

	return nil
}
