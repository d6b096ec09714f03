// Package telegram sends operator alerts to a Telegram chat.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram bot API.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New creates a Bot. Returns nil if token is empty (Telegram disabled).
func New(token string, chatID int64) (*Bot, error) {
	if token == "" {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram.New: %w", err)
	}
	return &Bot{api: api, chatID: chatID}, nil
}

// Send sends a plain text message to the alert chat.
func (b *Bot) Send(msg string) error {
	if b == nil {
		return nil
	}
	_, err := b.api.Send(tgbotapi.NewMessage(b.chatID, "Insight Lab "+msg))
	if err != nil {
		return fmt.Errorf("telegram.Send: %w", err)
	}
	return nil
}
