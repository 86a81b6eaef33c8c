package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/serroba/linkbot/internal/chat"
)

// BotAPI is the subset of *tgbotapi.BotAPI the bot uses.
type BotAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender sends outbound messages with the Bot API.
type Sender struct {
	api BotAPI
}

// NewSender creates a Telegram sender.
func NewSender(api BotAPI) *Sender {
	return &Sender{api: api}
}

func (s *Sender) Send(ctx context.Context, msg chat.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewMessage(int64(msg.ChatID), msg.Text)
	cfg.ReplyToMessageID = msg.ReplyTo

	if _, err := s.api.Send(cfg); err != nil {
		return fmt.Errorf("telegram send to chat %d: %w", msg.ChatID, err)
	}

	return nil
}

// IsPermanent reports whether err is a Bot API rejection that resending
// will not fix, such as a blocked bot or an unknown chat.
func IsPermanent(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden
}

// RetryAfter returns the flood-control delay of a 429 response.
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusTooManyRequests {
		return 0, false
	}

	if apiErr.RetryAfter <= 0 {
		return 0, false
	}

	return time.Duration(apiErr.RetryAfter) * time.Second, true
}
