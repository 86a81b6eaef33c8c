// Package bot routes inbound chat messages to commands or the link pipeline.
package bot

import (
	"context"
	"fmt"

	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/pipeline"
	"github.com/serroba/linkbot/internal/tokens"
	"go.uber.org/zap"
)

const (
	CommandStart  = "start"
	CommandSetAPI = "setapi"
)

const (
	setTokenUsage  = "Usage: /setapi YOUR_API_TOKEN"
	setTokenFailed = "Failed to save your API token, please try again later."
)

// Processor runs the link pipeline for a message.
type Processor interface {
	Process(ctx context.Context, msg chat.Message) (*pipeline.Outcome, error)
}

// Handler handles one inbound message.
type Handler struct {
	tokens    tokens.Store
	processor Processor
	sender    chat.Sender
	logger    *zap.Logger
}

// NewHandler creates a new message handler.
func NewHandler(store tokens.Store, processor Processor, sender chat.Sender, logger *zap.Logger) *Handler {
	return &Handler{
		tokens:    store,
		processor: processor,
		sender:    sender,
		logger:    logger,
	}
}

// Handle answers /start and /setapi; every other message goes to the pipeline.
func (h *Handler) Handle(ctx context.Context, msg chat.Message) error {
	if cmd, ok := ParseCommand(msg.Text); ok {
		switch cmd.Name {
		case CommandStart:
			return h.Start(ctx, msg)
		case CommandSetAPI:
			return h.SetToken(ctx, msg, cmd.Args)
		}
	}

	if _, err := h.processor.Process(ctx, msg); err != nil {
		return fmt.Errorf("process message: %w", err)
	}

	return nil
}

// Start sends the welcome text.
func (h *Handler) Start(ctx context.Context, msg chat.Message) error {
	return h.reply(ctx, msg.ChatID, WelcomeText(msg.From))
}

// SetToken stores token for the chat and echoes it back on success.
func (h *Handler) SetToken(ctx context.Context, msg chat.Message, token string) error {
	if token == "" {
		return h.reply(ctx, msg.ChatID, setTokenUsage)
	}

	if err := h.tokens.Set(ctx, msg.ChatID, tokens.Token(token)); err != nil {
		h.logger.Error("failed to save api token",
			zap.Int64("chat_id", int64(msg.ChatID)),
			zap.Error(err),
		)

		return h.reply(ctx, msg.ChatID, setTokenFailed)
	}

	h.logger.Info("api token saved", zap.Int64("chat_id", int64(msg.ChatID)))

	return h.reply(ctx, msg.ChatID, "Your API token set successfully ✅\nYour token is: "+token)
}

func (h *Handler) reply(ctx context.Context, chatID chat.ID, text string) error {
	if err := h.sender.Send(ctx, chat.OutboundMessage{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	return nil
}
