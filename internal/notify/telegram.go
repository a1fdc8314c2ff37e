package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/calclient/internal/logger"
)

// MessageSender delivers a text message to a chat
type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Telegram forwards resolved notifications to a Telegram chat. Loading and
// dismiss notifications are not forwarded.
type Telegram struct {
	sender MessageSender
	chatID int64
}

func NewTelegram(sender MessageSender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chatID: chatID}
}

func (t *Telegram) Notify(n Notification) {
	var text string
	switch n.Level {
	case LevelSuccess:
		text = "✅ " + n.Message
	case LevelError:
		text = "❌ " + n.Message
	default:
		return
	}
	if err := t.sender.SendMessage(t.chatID, text); err != nil {
		logger.Warn("telegram notification failed", "chat", t.chatID, "error", err)
	}
}

// BotSender sends messages through the Telegram Bot API
type BotSender struct {
	api *tgbotapi.BotAPI
}

func NewBotSender(token string) (*BotSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &BotSender{api: api}, nil
}

func (b *BotSender) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
