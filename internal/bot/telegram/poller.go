package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const pollTimeoutSeconds = 30

// UpdateSource is the long-polling part of *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RunPolling receives updates by long polling and dispatches them one at a time until ctx is
// cancelled or the update channel closes.
func RunPolling(ctx context.Context, src UpdateSource, d *Dispatcher, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := src.GetUpdatesChan(cfg)
	log.Info("telegram long polling started")
	defer log.Info("telegram long polling stopped")

	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			_ = d.Dispatch(ctx, update)
		}
	}
}
