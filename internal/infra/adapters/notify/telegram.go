package notify

import (
	"context"
	"fmt"
	"strconv"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var _ adapter.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier delivers digests to Telegram chats. The destination
// address on a subscription is the numeric chat ID.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewTelegramNotifier(token string, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	compLog := logger.With().Str("component", "TelegramNotifier").Logger()
	return &TelegramNotifier{bot: bot, log: &compLog}, nil
}

func (n *TelegramNotifier) Send(ctx context.Context, channel model.Channel, destination, subject, body string) error {
	if channel != model.ChannelTelegram {
		return domain.ErrInvalidArgument
	}
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram destination %q is not a chat id: %w", destination, err)
	}
	msg := tgbotapi.NewMessage(chatID, subject+"\n\n"+body)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
