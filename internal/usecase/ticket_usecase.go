package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fpsos/fpsbot/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrTicketAlreadyOpen = errors.New("ticket already open")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrNotTicketMember   = errors.New("not allowed in this ticket")
)

const ticketClosedText = "✅ Your support ticket has been closed. If you need more help, just reply here!"

// ChannelManager owns the chat-platform side of a ticket: the private
// channel and what is posted into it.
type ChannelManager interface {
	CreateTicketChannel(ctx context.Context, owner domain.ChatUser) (string, error)
	PostTicketControls(ctx context.Context, channelID string, owner domain.ChatUser) error
	SendToChannel(ctx context.Context, channelID, text string) error
	GrantAccess(ctx context.Context, channelID, userID string) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
}

type Messenger interface {
	SendDirect(ctx context.Context, userID, text string) error
}

type StaffAlerter interface {
	Alert(ctx context.Context, text string) error
}

type TicketUsecase struct {
	tickets  domain.TicketRepository
	users    domain.UserRepository
	channels ChannelManager
	dm       Messenger
	alerter  StaffAlerter
	logger   *zap.Logger
}

func NewTicketUsecase(tickets domain.TicketRepository, users domain.UserRepository, channels ChannelManager, dm Messenger, alerter StaffAlerter, logger *zap.Logger) *TicketUsecase {
	return &TicketUsecase{
		tickets:  tickets,
		users:    users,
		channels: channels,
		dm:       dm,
		alerter:  alerter,
		logger:   logger,
	}
}

// Open creates a ticket channel for owner. When the owner already has an
// open ticket it is returned together with ErrTicketAlreadyOpen.
func (u *TicketUsecase) Open(ctx context.Context, owner domain.ChatUser) (*domain.Ticket, error) {
	existing, err := u.tickets.GetOpenByUser(ctx, owner.ID)
	if err == nil {
		return existing, ErrTicketAlreadyOpen
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if err := u.users.Upsert(ctx, &domain.User{ExternalID: owner.ID, Username: owner.Name()}); err != nil {
		u.logger.Warn("failed to register ticket owner", zap.String("user_id", owner.ID), zap.Error(err))
	}

	channelID, err := u.channels.CreateTicketChannel(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("create ticket channel: %w", err)
	}

	ticket := &domain.Ticket{UserID: owner.ID, ChannelID: channelID, Status: domain.TicketOpen}
	if err := u.tickets.Create(ctx, ticket); err != nil {
		if delErr := u.channels.DeleteChannel(ctx, channelID, "ticket could not be recorded"); delErr != nil {
			u.logger.Warn("failed to remove orphan ticket channel", zap.String("channel_id", channelID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("save ticket: %w", err)
	}

	if err := u.channels.PostTicketControls(ctx, channelID, owner); err != nil {
		u.logger.Warn("failed to post ticket controls", zap.String("channel_id", channelID), zap.Error(err))
	}
	u.alert(ctx, fmt.Sprintf("🎫 Ticket #%d opened by %s", ticket.ID, owner.Name()))

	u.logger.Info("ticket opened", zap.Uint("ticket_id", ticket.ID), zap.String("user_id", owner.ID), zap.String("channel_id", channelID))
	return ticket, nil
}

// RelayFromUser mirrors a direct message into the sender's open ticket. It
// reports false when the sender has no open ticket.
func (u *TicketUsecase) RelayFromUser(ctx context.Context, msg domain.ChatMessage) (bool, error) {
	ticket, err := u.tickets.GetOpenByUser(ctx, msg.Author.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	text := fmt.Sprintf("**%s:** %s", msg.Author.Name(), relayBody(msg))
	if err := u.channels.SendToChannel(ctx, ticket.ChannelID, text); err != nil {
		return true, fmt.Errorf("relay to ticket channel: %w", err)
	}
	return true, nil
}

// RelayFromStaff mirrors a staff message posted in an open ticket channel to
// the ticket owner. Messages from anyone else are left alone.
func (u *TicketUsecase) RelayFromStaff(ctx context.Context, msg domain.ChatMessage) (bool, error) {
	if !msg.Author.IsStaff {
		return false, nil
	}
	ticket, err := u.tickets.GetOpenByChannel(ctx, msg.ChannelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if ticket.UserID == msg.Author.ID {
		return false, nil
	}

	text := fmt.Sprintf("**Staff (%s):** %s", msg.Author.Name(), relayBody(msg))
	if err := u.dm.SendDirect(ctx, ticket.UserID, text); err != nil {
		return true, fmt.Errorf("relay to ticket owner: %w", err)
	}
	return true, nil
}

// Close marks the ticket closed, tells the owner, then deletes the channel.
// The store is updated first so a failed teardown still leaves it closed.
func (u *TicketUsecase) Close(ctx context.Context, channelID string, closedBy domain.ChatUser) (*domain.Ticket, error) {
	ticket, err := u.openByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !closedBy.IsStaff && closedBy.ID != ticket.UserID {
		return nil, ErrNotTicketMember
	}

	if err := u.tickets.Close(ctx, ticket.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	ticket.Status = domain.TicketClosed

	if err := u.dm.SendDirect(ctx, ticket.UserID, ticketClosedText); err != nil {
		u.logger.Warn("failed to notify ticket owner", zap.String("user_id", ticket.UserID), zap.Error(err))
	}

	if err := u.channels.DeleteChannel(ctx, channelID, "Ticket closed by "+closedBy.Name()); err != nil {
		return ticket, fmt.Errorf("delete ticket channel: %w", err)
	}

	u.logger.Info("ticket closed", zap.Uint("ticket_id", ticket.ID), zap.String("closed_by", closedBy.ID))
	return ticket, nil
}

func (u *TicketUsecase) AddMember(ctx context.Context, channelID string, actor domain.ChatUser, memberID string) error {
	ticket, err := u.openByChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if !actor.IsStaff && actor.ID != ticket.UserID {
		return ErrNotTicketMember
	}
	return u.channels.GrantAccess(ctx, channelID, memberID)
}

func (u *TicketUsecase) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	return u.tickets.ListOpen(ctx)
}

func (u *TicketUsecase) openByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	ticket, err := u.tickets.GetOpenByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (u *TicketUsecase) alert(ctx context.Context, text string) {
	if u.alerter == nil {
		return
	}
	if err := u.alerter.Alert(ctx, text); err != nil {
		u.logger.Warn("failed to alert staff", zap.Error(err))
	}
}

func relayBody(msg domain.ChatMessage) string {
	parts := make([]string, 0, 1+len(msg.Attachments))
	if content := strings.TrimSpace(msg.Content); content != "" {
		parts = append(parts, content)
	}
	for _, att := range msg.Attachments {
		parts = append(parts, att.URL)
	}
	return strings.Join(parts, "\n")
}
