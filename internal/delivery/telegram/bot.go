package telegram

import (
	"context"

	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api         *tgbotapi.BotAPI
	handlers    *Handlers
	pollTimeout int
}

func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

func NewBot(api *tgbotapi.BotAPI, handlers *Handlers, pollTimeout int) *Bot {
	return &Bot{api: api, handlers: handlers, pollTimeout: pollTimeout}
}

func (b *Bot) Start(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(config)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handlers.HandleUpdate(ctx, b.api, update)
		}
	}
}

// Alerter posts staff alerts into the staff chat.
type Alerter struct {
	api    sender
	chatID int64
	logger *zap.Logger
}

func NewAlerter(api *tgbotapi.BotAPI, chatID int64, logger *zap.Logger) *Alerter {
	return &Alerter{api: api, chatID: chatID, logger: logger}
}

func (a *Alerter) Alert(_ context.Context, text string) error {
	a.logger.Info("telegram staff alert send", zap.Int64("chat_id", a.chatID))
	msg := tgbotapi.NewMessage(a.chatID, truncate(text))
	_, err := a.api.Send(msg)
	if err != nil {
		a.logger.Warn("failed to alert staff chat", zap.Error(err))
	}
	return err
}

// NopAlerter is used when no staff chat is configured.
type NopAlerter struct{}

func (NopAlerter) Alert(context.Context, string) error { return nil }
