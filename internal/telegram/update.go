// Package telegram connects the bot to the Telegram Bot API.
package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/serroba/linkbot/internal/chat"
)

// MessageFromUpdate converts an update carrying a message. It reports false
// for other update kinds.
func MessageFromUpdate(update tgbotapi.Update) (chat.Message, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return chat.Message{}, false
	}

	out := chat.Message{
		ChatID:    chat.ID(msg.Chat.ID),
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Caption:   msg.Caption,
		HasMedia:  len(msg.Photo) > 0 || msg.Video != nil || msg.Document != nil,
	}

	if msg.From != nil {
		out.From = msg.From.UserName
	}

	return out, true
}
