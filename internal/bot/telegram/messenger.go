// Package telegram adapts the Telegram Bot API to the registration bot: outgoing replies,
// update dispatch, the webhook endpoint and long polling.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI used for replies.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger sends bot replies through the Bot API.
type Messenger struct {
	api Sender
}

// NewMessenger returns a Messenger over api.
func NewMessenger(api Sender) *Messenger {
	return &Messenger{api: api}
}

// SendText sends a plain reply and removes any custom keyboard.
func (m *Messenger) SendText(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	_, err := m.api.Send(msg)
	return err
}

// RequestContact sends text with a one-time keyboard holding a single contact-request button.
func (m *Messenger) RequestContact(_ context.Context, chatID int64, text, button string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	keyboard := tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(button)),
	)
	keyboard.ResizeKeyboard = true
	msg.ReplyMarkup = keyboard
	_, err := m.api.Send(msg)
	return err
}
