package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"storefront/backend/internal/bot"
)

// Handler is the bot logic that updates are routed to. *bot.Bridge implements it.
type Handler interface {
	HandleStart(ctx context.Context, chatID int64, payload string) error
	HandleContact(ctx context.Context, c bot.Contact) error
	HandleOther(ctx context.Context, chatID int64) error
}

// Dispatcher routes Telegram updates to a Handler.
type Dispatcher struct {
	handler Handler
	log     *zap.Logger
}

// NewDispatcher returns a Dispatcher.
func NewDispatcher(h Handler, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{handler: h, log: log}
}

// Dispatch handles one update. Updates without a private-chat message are ignored.
// Handler errors are logged and returned.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}
	chatID := msg.Chat.ID

	var err error
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		err = d.handler.HandleStart(ctx, chatID, msg.CommandArguments())
	case msg.Contact != nil:
		var senderID int64
		if msg.From != nil {
			senderID = msg.From.ID
		}
		err = d.handler.HandleContact(ctx, bot.Contact{
			ChatID:        chatID,
			SenderID:      senderID,
			ContactUserID: msg.Contact.UserID,
			PhoneNumber:   msg.Contact.PhoneNumber,
		})
	default:
		err = d.handler.HandleOther(ctx, chatID)
	}
	if err != nil {
		d.log.Error("bot update failed", zap.Int("update_id", update.UpdateID), zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}
