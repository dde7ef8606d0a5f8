package telegram

import (
	"context"
	"errors"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type statsSource interface {
	Collect(ctx context.Context) (*domain.Stats, error)
}

type ticketLister interface {
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
}

type Handlers struct {
	stats       statsSource
	tickets     ticketLister
	staffChatID int64
	logger      *zap.Logger
}

func NewHandlers(stats statsSource, tickets ticketLister, staffChatID int64, logger *zap.Logger) *Handlers {
	return &Handlers{stats: stats, tickets: tickets, staffChatID: staffChatID, logger: logger}
}

func (h *Handlers) HandleUpdate(ctx context.Context, api sender, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	if update.Message.From == nil {
		return
	}
	if update.Message.IsCommand() {
		h.handleCommand(ctx, api, update)
		return
	}
}

func (h *Handlers) handleCommand(ctx context.Context, api sender, update tgbotapi.Update) {
	command := update.Message.Command()
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	h.logger.Info(
		"telegram command received",
		zap.Int64("chat_id", chatID),
		zap.Int64("telegram_user_id", userID),
		zap.String("username", update.Message.From.UserName),
		zap.String("command", command),
	)

	if chatID != h.staffChatID {
		h.logger.Warn("telegram command outside staff chat", zap.Int64("chat_id", chatID))
		h.reply(api, chatID, "This console only answers in the FPSOS staff chat.")
		return
	}

	switch command {
	case "start":
		h.reply(api, chatID, "FPSOS staff console.\n\n"+HelpText)
	case "help":
		h.reply(api, chatID, HelpText)
	case "stats":
		stats, err := h.stats.Collect(ctx)
		if err != nil {
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		h.logger.Info("stats command complete", zap.Int64("telegram_user_id", userID))
		h.reply(api, chatID, formatStats(stats))
	case "tickets":
		tickets, err := h.tickets.ListOpen(ctx)
		if err != nil {
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		h.logger.Info("tickets command complete", zap.Int64("telegram_user_id", userID), zap.Int("count", len(tickets)))
		h.reply(api, chatID, formatTickets(tickets))
	default:
		h.logger.Warn("unknown command", zap.Int64("telegram_user_id", userID), zap.String("command", command))
		h.reply(api, chatID, "Unknown command.\n\n"+HelpText)
	}
}

func (h *Handlers) errorMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "The request timed out. Please try again."
	case errors.Is(err, usecase.ErrTicketNotFound):
		return "Ticket not found."
	}

	h.logger.Warn("unhandled error", zap.Error(err))
	return "Something went wrong. Please try again."
}

func (h *Handlers) reply(api sender, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncate(text))
	if _, err := api.Send(msg); err != nil {
		h.logger.Warn("failed to send message", zap.Error(err))
	}
}
