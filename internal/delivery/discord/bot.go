package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fpsos/fpsbot/internal/domain"
	"go.uber.org/zap"
)

const watchStatus = "CS2 Performance | /diagnostic"

type memberRegistrar interface {
	RegisterMember(ctx context.Context, join domain.MemberJoin) (*domain.User, error)
}

type BotConfig struct {
	ApplicationID string
	GuildID       string
	StaffRoleID   string
}

type Bot struct {
	session  *discordgo.Session
	adapter  *Adapter
	router   *Router
	commands *Commands
	members  memberRegistrar
	metrics  eventRecorder
	cfg      BotConfig
	logger   *zap.Logger

	ctx context.Context
}

func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

func NewBot(session *discordgo.Session, adapter *Adapter, router *Router, commands *Commands, members memberRegistrar, metrics eventRecorder, cfg BotConfig, logger *zap.Logger) *Bot {
	return &Bot{
		session:  session,
		adapter:  adapter,
		router:   router,
		commands: commands,
		members:  members,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// Start connects the gateway and blocks until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessage)
	b.session.AddHandler(b.onMemberJoin)
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.logger.Info("discord gateway connected")

	<-ctx.Done()
	if err := b.session.Close(); err != nil {
		b.logger.Warn("failed to close discord session", zap.Error(err))
	}
	return nil
}

func (b *Bot) Status() domain.PlatformStatus {
	status := domain.PlatformStatus{LatencyMS: b.session.HeartbeatLatency().Milliseconds()}
	if b.session.State == nil {
		return status
	}
	b.session.State.RLock()
	defer b.session.State.RUnlock()
	status.Guilds = len(b.session.State.Guilds)
	for _, g := range b.session.State.Guilds {
		status.Users += g.MemberCount
	}
	return status
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.adapter.setSelfID(r.User.ID)
	b.logger.Info("discord ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))

	if err := s.UpdateWatchStatus(0, watchStatus); err != nil {
		b.logger.Warn("failed to set presence", zap.Error(err))
	}

	appID := b.cfg.ApplicationID
	if appID == "" {
		appID = r.User.ID
	}
	registered, err := s.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, commandDefinitions(), discordgo.WithContext(b.ctx))
	if err != nil {
		b.logger.Error("failed to register slash commands", zap.Error(err))
		return
	}
	b.logger.Info("slash commands registered", zap.Int("count", len(registered)), zap.String("guild_id", b.cfg.GuildID))
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	msg := toChatMessage(m.Message, b.cfg.StaffRoleID)
	if !msg.IsDirect && !msg.Author.IsStaff && s.State != nil {
		if perms, err := s.State.UserChannelPermissions(msg.Author.ID, msg.ChannelID); err == nil {
			msg.Author.IsStaff = perms&discordgo.PermissionAdministrator != 0
		}
	}

	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	b.router.HandleMessage(b.ctx, msg, selfID)
}

func (b *Bot) onMemberJoin(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.Member.User == nil || m.Member.User.Bot {
		return
	}
	join := toMemberJoin(m, b.cfg.StaffRoleID)
	b.metrics.ChatEvent("member_join")

	if _, err := b.members.RegisterMember(b.ctx, join); err != nil {
		b.logger.Warn("failed to register member", zap.String("user_id", join.Member.ID), zap.Error(err))
	}
	if err := b.adapter.Welcome(b.ctx, join); err != nil {
		b.logger.Warn("failed to welcome member", zap.String("user_id", join.Member.ID), zap.Error(err))
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	in, ok := commandFromInteraction(i.Interaction, b.cfg.StaffRoleID)
	if !ok {
		return
	}
	out := b.commands.Handle(b.ctx, in)

	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseChannelMessageWithSource, Data: out.Data}
	if out.Deferred {
		resp = &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	}
	if err := s.InteractionRespond(i.Interaction, resp, discordgo.WithContext(b.ctx)); err != nil {
		b.logger.Warn("failed to answer interaction", zap.String("name", in.Name), zap.Error(err))
		return
	}

	if out.Then == nil {
		return
	}
	followup := out.Then(b.ctx)
	if followup == nil {
		return
	}
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content:    followup.Content,
		Embeds:     followup.Embeds,
		Components: followup.Components,
		Flags:      followup.Flags,
	}, discordgo.WithContext(b.ctx))
	if err != nil {
		b.logger.Warn("failed to send followup", zap.String("name", in.Name), zap.Error(err))
	}
}
