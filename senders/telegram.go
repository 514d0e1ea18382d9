package senders

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramSender struct {
	base
	bot *tgbotapi.BotAPI
}

func newTelegramSender(b base) (*telegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(b.cfg.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	b.log.Sugar().Infow("Telegram sender ready", "bot", bot.Self.UserName)
	return &telegramSender{base: b, bot: bot}, nil
}

// Send delivers to a Telegram chat. The recipient is the chat id as a
// decimal string, which for direct messages equals the user's telegram id.
func (t *telegramSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram recipient must be a chat id: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("<b>%s</b>\n\n%s", subject, body))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := t.bot.Send(msg)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}
