package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/usecase"
	"go.uber.org/zap"
)

const (
	errCodeUnknownUser = 10013
	ticketAccess       = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory | discordgo.PermissionAttachFiles
)

var channelNameUnsafe = regexp.MustCompile(`[^a-z0-9_-]+`)

// restClient is the part of *discordgo.Session the adapter calls.
type restClient interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

type AdapterConfig struct {
	GuildID        string
	StaffRoleID    string
	TicketCategory string
	WelcomeChannel string
	Links          Links
}

// Adapter carries out the bot's side effects on the chat platform.
type Adapter struct {
	rest   restClient
	http   *http.Client
	cfg    AdapterConfig
	selfID atomic.Value
	logger *zap.Logger
}

func NewAdapter(rest restClient, httpClient *http.Client, cfg AdapterConfig, logger *zap.Logger) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	a := &Adapter{rest: rest, http: httpClient, cfg: cfg, logger: logger}
	a.selfID.Store("")
	return a
}

func (a *Adapter) setSelfID(id string) {
	a.selfID.Store(id)
}

func (a *Adapter) self() string {
	id, _ := a.selfID.Load().(string)
	return id
}

func (a *Adapter) SendDirect(ctx context.Context, userID, text string) error {
	return a.sendDirect(ctx, userID, &discordgo.MessageSend{Content: text})
}

func (a *Adapter) SendBookingConfirmation(ctx context.Context, userID string, booking domain.Booking) error {
	return a.sendDirect(ctx, userID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{bookingConfirmationEmbed(booking)},
	})
}

func (a *Adapter) SendDiagnosticPrompt(ctx context.Context, userID string) error {
	return a.sendDirect(ctx, userID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{manualDiagnosticEmbed(a.cfg.Links)},
		Components: welcomeComponents(),
	})
}

// LookupUser resolves a platform user id; unknown ids map to usecase.ErrUserNotFound.
func (a *Adapter) LookupUser(ctx context.Context, userID string) (domain.ChatUser, error) {
	user, err := a.rest.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownUser(err) {
			return domain.ChatUser{}, usecase.ErrUserNotFound
		}
		return domain.ChatUser{}, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return toChatUser(user, nil, ""), nil
}

// Welcome DMs a new member. When their DMs are closed a short notice is
// posted in the welcome channel instead.
func (a *Adapter) Welcome(ctx context.Context, join domain.MemberJoin) error {
	err := a.sendDirect(ctx, join.Member.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{welcomeEmbed(join.Member)},
		Components: welcomeComponents(),
	})
	if err == nil || !isDirectMessagesClosed(err) {
		return err
	}

	a.logger.Info("welcome DM refused, using channel fallback", zap.String("user_id", join.Member.ID))
	channelID, findErr := a.findChannel(ctx, join.GuildID, a.cfg.WelcomeChannel, discordgo.ChannelTypeGuildText)
	if findErr != nil {
		return findErr
	}
	if channelID == "" {
		return err
	}
	return a.SendToChannel(ctx, channelID, fmt.Sprintf("👋 <@%s> welcome! Check your DMs to start your CS2 diagnostic.", join.Member.ID))
}

func (a *Adapter) Reply(ctx context.Context, msg domain.ChatMessage, out *discordgo.MessageSend) error {
	out.Reference = &discordgo.MessageReference{MessageID: msg.ID, ChannelID: msg.ChannelID, GuildID: msg.GuildID}
	_, err := a.rest.ChannelMessageSendComplex(msg.ChannelID, out, discordgo.WithContext(ctx))
	return err
}

func (a *Adapter) CreateTicketChannel(ctx context.Context, owner domain.ChatUser) (string, error) {
	categoryID, err := a.ticketCategory(ctx)
	if err != nil {
		return "", err
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: a.cfg.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
	}
	if self := a.self(); self != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{ID: self, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketAccess})
	}
	if a.cfg.StaffRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{ID: a.cfg.StaffRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketAccess})
	}

	channel, err := a.rest.GuildChannelCreateComplex(a.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 ticketChannelName(owner),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             categoryID,
		Topic:                "Support ticket for " + owner.Name(),
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason("Ticket opened by "+owner.Name()))
	if err != nil {
		return "", fmt.Errorf("create channel: %w", err)
	}
	return channel.ID, nil
}

func (a *Adapter) PostTicketControls(ctx context.Context, channelID string, owner domain.ChatUser) error {
	_, err := a.rest.ChannelMessageSendComplex(channelID, ticketControlsMessage(owner, a.cfg.StaffRoleID), discordgo.WithContext(ctx))
	return err
}

func (a *Adapter) SendToChannel(ctx context.Context, channelID, text string) error {
	_, err := a.rest.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: text}, discordgo.WithContext(ctx))
	return err
}

func (a *Adapter) GrantAccess(ctx context.Context, channelID, userID string) error {
	return a.rest.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, ticketAccess, 0, discordgo.WithContext(ctx))
}

func (a *Adapter) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := a.rest.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return err
}

// Fetch downloads an attachment, reading at most limit bytes.
func (a *Adapter) Fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download: status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, usecase.ErrAttachmentTooLarge
	}
	return data, nil
}

func (a *Adapter) sendDirect(ctx context.Context, userID string, out *discordgo.MessageSend) error {
	channel, err := a.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM channel: %w", err)
	}
	if _, err := a.rest.ChannelMessageSendComplex(channel.ID, out, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send DM: %w", err)
	}
	return nil
}

func (a *Adapter) ticketCategory(ctx context.Context) (string, error) {
	if a.cfg.TicketCategory == "" {
		return "", nil
	}
	id, err := a.findChannel(ctx, a.cfg.GuildID, a.cfg.TicketCategory, discordgo.ChannelTypeGuildCategory)
	if err != nil || id != "" {
		return id, err
	}

	category, err := a.rest.GuildChannelCreateComplex(a.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name: a.cfg.TicketCategory,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create ticket category: %w", err)
	}
	a.logger.Info("ticket category created", zap.String("category_id", category.ID))
	return category.ID, nil
}

func (a *Adapter) findChannel(ctx context.Context, guildID, name string, kind discordgo.ChannelType) (string, error) {
	channels, err := a.rest.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("list guild channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == kind && strings.EqualFold(ch.Name, name) {
			return ch.ID, nil
		}
	}
	return "", nil
}

func ticketChannelName(owner domain.ChatUser) string {
	name := channelNameUnsafe.ReplaceAllString(strings.ToLower(owner.Username), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = owner.ID
	}
	return "ticket-" + name
}

func isDirectMessagesClosed(err error) bool {
	return restErrorCode(err) == discordgo.ErrCodeCannotSendMessagesToThisUser
}

func isUnknownUser(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return true
	}
	return restErrorCode(err) == errCodeUnknownUser
}

func restErrorCode(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code
	}
	return 0
}
