package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// TGBotAPIClient adapts tgbotapi.BotAPI to Sender.
type TGBotAPIClient struct {
	bot       *tgbotapi.BotAPI
	parseMode string
}

// NewTGBotAPIClient creates a new Telegram client using tgbotapi. It calls
// getMe, so an invalid token fails here rather than on the first message.
func NewTGBotAPIClient(token string) (*TGBotAPIClient, error) {
	bot, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	return &TGBotAPIClient{bot: bot, parseMode: tgbotapi.ModeMarkdown}, nil
}

// SendMessage sends a message to the specified chat.
func (c *TGBotAPIClient) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = c.parseMode
	msg.DisableWebPagePreview = true
	_, err := c.bot.Send(msg)
	return err
}

var _ Sender = (*TGBotAPIClient)(nil)
