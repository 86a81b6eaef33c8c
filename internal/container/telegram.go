package container

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/do"
	"github.com/serroba/linkbot/internal/bot"
	"github.com/serroba/linkbot/internal/telegram"
	"go.uber.org/zap"
)

var errMissingTelegramToken = errors.New("telegram token is required, set --telegram-token or SERVICE_TELEGRAM_TOKEN")

// TelegramPackage provides telegram.BotAPI, *telegram.Sender and
// *telegram.Poller.
func TelegramPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (telegram.BotAPI, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.TelegramToken == "" {
			return nil, errMissingTelegramToken
		}

		api, err := tgbotapi.NewBotAPI(opts.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("connect to telegram: %w", err)
		}

		logger.Info("authorized on telegram", zap.String("bot", api.Self.UserName))

		return api, nil
	})

	do.Provide(i, func(i *do.Injector) (*telegram.Sender, error) {
		return telegram.NewSender(do.MustInvoke[telegram.BotAPI](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (*telegram.Poller, error) {
		opts := do.MustInvoke[*Options](i)

		return telegram.NewPoller(
			do.MustInvoke[telegram.BotAPI](i),
			do.MustInvoke[*bot.Handler](i),
			do.MustInvoke[*zap.Logger](i),
			telegram.WithMaxConcurrent(opts.MaxConcurrentMessages),
		), nil
	})
}
