package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/usecase"
	"go.uber.org/zap"
)

const (
	adminOnlyText    = "❌ This command is for administrators only."
	notTicketText    = "❌ This is not an active ticket channel."
	genericErrorText = "❌ Something went wrong. Please try again later."
)

type ticketCommands interface {
	Open(ctx context.Context, owner domain.ChatUser) (*domain.Ticket, error)
	Close(ctx context.Context, channelID string, closedBy domain.ChatUser) (*domain.Ticket, error)
	AddMember(ctx context.Context, channelID string, actor domain.ChatUser, memberID string) error
}

type tagCommands interface {
	Lookup(ctx context.Context, name string) (*domain.Tag, error)
	Suggest(ctx context.Context, query string) ([]string, error)
	Save(ctx context.Context, name, content, createdBy string) (*domain.Tag, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

type profileCommands interface {
	SaveSpecs(ctx context.Context, chatUser domain.ChatUser, in usecase.SpecsInput) (string, error)
	Profile(ctx context.Context, externalID string) (*usecase.Profile, error)
}

type statsSource interface {
	Collect(ctx context.Context) (*domain.Stats, error)
}

type researcher interface {
	Enabled() bool
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

type commandRecorder interface {
	ChatEvent(eventType string)
	TicketOpened()
	TicketClosed()
}

// commandInput is a slash command or button click with its options flattened.
type commandInput struct {
	Name      string
	Sub       string
	Options   map[string]string
	User      domain.ChatUser
	IsAdmin   bool
	ChannelID string
	GuildID   string
}

func (in commandInput) option(name string) string {
	return strings.TrimSpace(in.Options[name])
}

// commandReply is sent as the interaction response. A deferred reply only
// acknowledges; Then runs after the response and a non-nil result is posted
// as a followup.
type commandReply struct {
	Data     *discordgo.InteractionResponseData
	Deferred bool
	Then     func(ctx context.Context) *discordgo.InteractionResponseData
}

type Commands struct {
	tickets  ticketCommands
	tags     tagCommands
	profiles profileCommands
	stats    statsSource
	research researcher
	latency  func() time.Duration
	metrics  commandRecorder
	links    Links
	logger   *zap.Logger
}

func NewCommands(tickets ticketCommands, tags tagCommands, profiles profileCommands, stats statsSource, research researcher, latency func() time.Duration, metrics commandRecorder, links Links, logger *zap.Logger) *Commands {
	return &Commands{
		tickets:  tickets,
		tags:     tags,
		profiles: profiles,
		stats:    stats,
		research: research,
		latency:  latency,
		metrics:  metrics,
		links:    links,
		logger:   logger,
	}
}

func (c *Commands) Handle(ctx context.Context, in commandInput) commandReply {
	c.metrics.ChatEvent("command:" + in.Name)

	switch in.Name {
	case "diagnostic", buttonDiagTool:
		return reply(&discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{diagnosticPromptEmbed(c.links)},
			Flags:  ephemeralIf(in.Name == buttonDiagTool),
		})
	case "book", "packages", buttonPackages:
		return reply(&discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{packagesEmbed()},
			Components: packageButtons(c.links),
			Flags:      ephemeralIf(in.Name == buttonPackages),
		})
	case "ping":
		return reply(&discordgo.InteractionResponseData{
			Content: fmt.Sprintf("🏓 Pong! Latency: %dms", c.latency().Milliseconds()),
		})
	case "info":
		return reply(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{infoEmbed(c.latency())}})
	case "resources":
		return reply(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{resourcesEmbed(c.links)}})
	case "launch_options":
		return reply(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{launchOptionsEmbed()}})
	case "drivers":
		return reply(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{driversEmbed()}})
	case "research":
		return c.handleResearch(in)
	case "ticket":
		return c.handleTicket(ctx, in)
	case buttonTicketOpen:
		return c.openTicket(ctx, in)
	case buttonTicketClose:
		return c.closeTicket(in)
	case "tag":
		return c.handleTag(ctx, in)
	case "specs":
		return c.handleSpecs(ctx, in)
	case "stats":
		return c.handleStats(ctx, in)
	default:
		c.logger.Warn("unknown interaction", zap.String("name", in.Name))
		return ephemeral("❌ Unknown command.")
	}
}

func (c *Commands) handleResearch(in commandInput) commandReply {
	query := in.option("query")
	return commandReply{
		Deferred: true,
		Then: func(ctx context.Context) *discordgo.InteractionResponseData {
			results, err := c.research.Search(ctx, query)
			switch {
			case errors.Is(err, usecase.ErrResearchDisabled):
				return &discordgo.InteractionResponseData{Content: "❌ Firecrawl API Key not configured.", Flags: discordgo.MessageFlagsEphemeral}
			case errors.Is(err, usecase.ErrEmptyQuery):
				return &discordgo.InteractionResponseData{Content: "❌ Please provide a search query.", Flags: discordgo.MessageFlagsEphemeral}
			case err != nil:
				c.logger.Warn("research failed", zap.String("query", query), zap.Error(err))
				return &discordgo.InteractionResponseData{Content: "❌ Research failed. Please try again later.", Flags: discordgo.MessageFlagsEphemeral}
			}
			return &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{researchEmbed(query, results)}}
		},
	}
}

func (c *Commands) handleTicket(ctx context.Context, in commandInput) commandReply {
	switch in.Sub {
	case "open":
		return c.openTicket(ctx, in)
	case "close":
		return c.closeTicket(in)
	case "add_user":
		return c.addTicketMember(ctx, in)
	default:
		return ephemeral("❌ Unknown ticket action.")
	}
}

func (c *Commands) openTicket(ctx context.Context, in commandInput) commandReply {
	_, err := c.tickets.Open(ctx, in.User)
	if err != nil {
		if errors.Is(err, usecase.ErrTicketAlreadyOpen) {
			return ephemeral("❌ You already have an open ticket.")
		}
		c.logger.Error("failed to open ticket", zap.String("user_id", in.User.ID), zap.Error(err))
		return ephemeral("❌ Could not create a ticket. Please contact staff directly.")
	}
	c.metrics.TicketOpened()
	return ephemeral("✅ Ticket created! Please check your DMs/wait for staff.")
}

// The channel is deleted by the close itself, so the acknowledgement goes
// out first and only a failure produces a followup.
func (c *Commands) closeTicket(in commandInput) commandReply {
	return commandReply{
		Data: &discordgo.InteractionResponseData{Content: "🔒 Closing ticket..."},
		Then: func(ctx context.Context) *discordgo.InteractionResponseData {
			ticket, err := c.tickets.Close(ctx, in.ChannelID, in.User)
			switch {
			case err == nil:
				c.metrics.TicketClosed()
				return nil
			case errors.Is(err, usecase.ErrTicketNotFound):
				return &discordgo.InteractionResponseData{Content: notTicketText, Flags: discordgo.MessageFlagsEphemeral}
			case errors.Is(err, usecase.ErrNotTicketMember):
				return &discordgo.InteractionResponseData{Content: "❌ Only staff or the ticket owner can close this ticket.", Flags: discordgo.MessageFlagsEphemeral}
			case ticket != nil:
				// closed in the store; only the channel teardown failed
				c.metrics.TicketClosed()
				c.logger.Error("ticket channel not deleted", zap.String("channel_id", in.ChannelID), zap.Error(err))
				return &discordgo.InteractionResponseData{Content: "✅ Ticket closed. This channel could not be removed; staff will clean it up."}
			default:
				c.logger.Error("failed to close ticket", zap.String("channel_id", in.ChannelID), zap.Error(err))
				return &discordgo.InteractionResponseData{Content: genericErrorText, Flags: discordgo.MessageFlagsEphemeral}
			}
		},
	}
}

func (c *Commands) addTicketMember(ctx context.Context, in commandInput) commandReply {
	memberID := in.option("member")
	if memberID == "" {
		return ephemeral("❌ Please choose a member to add.")
	}
	err := c.tickets.AddMember(ctx, in.ChannelID, in.User, memberID)
	switch {
	case err == nil:
		return reply(&discordgo.InteractionResponseData{Content: fmt.Sprintf("✅ Added <@%s> to the ticket.", memberID)})
	case errors.Is(err, usecase.ErrTicketNotFound):
		return ephemeral(notTicketText)
	case errors.Is(err, usecase.ErrNotTicketMember):
		return ephemeral("❌ Only staff or the ticket owner can add members.")
	default:
		c.logger.Error("failed to add ticket member", zap.String("channel_id", in.ChannelID), zap.Error(err))
		return ephemeral(genericErrorText)
	}
}

func (c *Commands) handleTag(ctx context.Context, in commandInput) commandReply {
	name := in.option("name")
	switch in.Sub {
	case "get":
		tag, err := c.tags.Lookup(ctx, name)
		if err != nil {
			if !errors.Is(err, usecase.ErrTagNotFound) {
				c.logger.Error("tag lookup failed", zap.String("tag", name), zap.Error(err))
				return ephemeral(genericErrorText)
			}
			hint := ""
			if matches, _ := c.tags.Suggest(ctx, name); len(matches) > 0 {
				hint = "\nDid you mean: " + strings.Join(matches, ", ") + "?"
			}
			return ephemeral(fmt.Sprintf("❌ Tag `%s` not found.%s", name, hint))
		}
		return reply(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{{
			Title:       "🏷️ " + titleCase(tag.Name),
			Description: tag.Content,
			Color:       colorBlue,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Requested by " + in.User.Name()},
		}}})
	case "add":
		if !in.IsAdmin {
			return ephemeral(adminOnlyText)
		}
		tag, err := c.tags.Save(ctx, name, in.option("content"), in.User.ID)
		if err != nil {
			if errors.Is(err, usecase.ErrInvalidTag) {
				return ephemeral("❌ Tag names must be a single word and content cannot be empty.")
			}
			c.logger.Error("failed to save tag", zap.String("tag", name), zap.Error(err))
			return ephemeral(genericErrorText)
		}
		return ephemeral(fmt.Sprintf("✅ Tag `%s` saved!", tag.Name))
	case "delete":
		if !in.IsAdmin {
			return ephemeral(adminOnlyText)
		}
		err := c.tags.Delete(ctx, name)
		switch {
		case err == nil:
			return ephemeral(fmt.Sprintf("🗑️ Tag `%s` deleted.", name))
		case errors.Is(err, usecase.ErrTagNotFound):
			return ephemeral(fmt.Sprintf("❌ Tag `%s` does not exist.", name))
		default:
			c.logger.Error("failed to delete tag", zap.String("tag", name), zap.Error(err))
			return ephemeral(genericErrorText)
		}
	case "list":
		names, err := c.tags.List(ctx)
		if err != nil {
			c.logger.Error("failed to list tags", zap.Error(err))
			return ephemeral(genericErrorText)
		}
		if len(names) == 0 {
			return ephemeral("No tags found.")
		}
		quoted := make([]string, 0, len(names))
		for _, n := range names {
			quoted = append(quoted, "`"+n+"`")
		}
		return ephemeral("📚 **Available Tags:**\n" + strings.Join(quoted, ", "))
	default:
		return ephemeral("❌ Unknown tag action.")
	}
}

func (c *Commands) handleSpecs(ctx context.Context, in commandInput) commandReply {
	switch in.Sub {
	case "save":
		_, err := c.profiles.SaveSpecs(ctx, in.User, usecase.SpecsInput{
			CPU:     in.option("cpu"),
			GPU:     in.option("gpu"),
			RAM:     in.option("ram"),
			Monitor: in.option("monitor"),
		})
		if err != nil {
			if errors.Is(err, usecase.ErrInvalidSpecs) {
				return ephemeral("❌ CPU, GPU and RAM are required.")
			}
			c.logger.Error("failed to save specs", zap.String("user_id", in.User.ID), zap.Error(err))
			return ephemeral(genericErrorText)
		}
		return ephemeral("✅ Specs saved!")
	case "view":
		target := in.option("member")
		if target == "" {
			target = in.User.ID
		}
		profile, err := c.profiles.Profile(ctx, target)
		if err != nil {
			if errors.Is(err, usecase.ErrUserNotFound) {
				return ephemeral(fmt.Sprintf("❌ No profile found for <@%s>.", target))
			}
			c.logger.Error("failed to load profile", zap.String("user_id", target), zap.Error(err))
			return ephemeral(genericErrorText)
		}
		return reply(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{profileEmbed(profile)}})
	default:
		return ephemeral("❌ Unknown specs action.")
	}
}

func (c *Commands) handleStats(ctx context.Context, in commandInput) commandReply {
	if !in.IsAdmin {
		return ephemeral(adminOnlyText)
	}
	stats, err := c.stats.Collect(ctx)
	if err != nil {
		c.logger.Error("failed to collect stats", zap.Error(err))
		return ephemeral(genericErrorText)
	}
	return reply(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{statsEmbed(stats, in.User.Name())},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

func launchOptionsEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🚀 FPSOS Optimized Launch Options",
		Description: "Copy these arguments into your Steam Library -> CS2 Properties -> General -> Launch Options.",
		Color:       colorOrange,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "🏆 Standard Competitive",
			Value: "```\n-high -threads 8 -freq 240 -novid -nojoy +cl_forcepreload 1 +exec autoexec.cfg\n```\n*Adjust `-freq` to your monitor's refresh rate.*",
		}},
		Footer: &discordgo.MessageEmbedFooter{Text: "Always test launch options one by one if you experience crashes."},
	}
}

func driversEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "💿 Driver Updates",
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "NVIDIA", Value: "[Download GeForce Drivers](https://www.nvidia.com/Download/index.aspx)", Inline: true},
			{Name: "AMD Radeon", Value: "[Download Adrenalin](https://www.amd.com/en/support)", Inline: true},
			{Name: "DDU (Clean Uninstall)", Value: "[Download DDU](https://www.wagnardsoft.com/)"},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Recommended: Use DDU in Safe Mode before installing new drivers."},
	}
}

func reply(data *discordgo.InteractionResponseData) commandReply {
	return commandReply{Data: data}
}

func ephemeral(text string) commandReply {
	return commandReply{Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral}}
}

func ephemeralIf(ok bool) discordgo.MessageFlags {
	if ok {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// commandFromInteraction flattens a slash command or button click.
func commandFromInteraction(i *discordgo.Interaction, staffRoleID string) (commandInput, bool) {
	in := commandInput{
		Options:   map[string]string{},
		User:      interactionUser(i, staffRoleID),
		IsAdmin:   isAdmin(i.Member),
		ChannelID: i.ChannelID,
		GuildID:   i.GuildID,
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		in.Name = data.Name
		options := data.Options
		if len(options) == 1 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
			in.Sub = options[0].Name
			options = options[0].Options
		}
		for _, opt := range options {
			in.Options[opt.Name] = optionString(opt.Value)
		}
		return in, true
	case discordgo.InteractionMessageComponent:
		in.Name = i.MessageComponentData().CustomID
		return in, true
	default:
		return in, false
	}
}

func optionString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	tagName := &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Tag name", Required: true}

	return []*discordgo.ApplicationCommand{
		{Name: "diagnostic", Description: "Start CS2 system diagnostic"},
		{Name: "book", Description: "Book an optimization session"},
		{Name: "packages", Description: "View all FPSOS optimization packages"},
		{Name: "ping", Description: "Check bot latency and status"},
		{Name: "info", Description: "About FPSOS and this bot"},
		{Name: "resources", Description: "View optimization resources and tools"},
		{Name: "launch_options", Description: "Generate optimized CS2 launch options"},
		{Name: "drivers", Description: "Get links to the latest GPU drivers"},
		{
			Name:        "research",
			Description: "Research CS2 topics on the web",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "query", Description: "What to search for", Required: true},
			},
		},
		{
			Name:        "ticket",
			Description: "Manage support tickets",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "open", Description: "Open a private support ticket"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "close", Description: "Close the current ticket"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add_user", Description: "Add a user to this ticket",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Member to add", Required: true},
					},
				},
			},
		},
		{
			Name:        "tag",
			Description: "Manage and retrieve knowledge base tags",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "get", Description: "Retrieve a tag by name", Options: []*discordgo.ApplicationCommandOption{tagName}},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add", Description: "Create or update a tag (Admin only)",
					Options: []*discordgo.ApplicationCommandOption{
						tagName,
						{Type: discordgo.ApplicationCommandOptionString, Name: "content", Description: "Content of the tag", Required: true},
					},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "delete", Description: "Delete a tag (Admin only)", Options: []*discordgo.ApplicationCommandOption{tagName}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "List all available tags"},
			},
		},
		{
			Name:        "specs",
			Description: "Manage your PC specifications",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "save", Description: "Save your PC specs to your profile",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "cpu", Description: "CPU model", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "gpu", Description: "GPU model", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "ram", Description: "RAM amount and speed", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "monitor", Description: "Monitor refresh rate"},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "view", Description: "View a user's PC specs",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Whose specs to show"},
					},
				},
			},
		},
		{Name: "stats", Description: "View bot statistics (admin only)", DefaultMemberPermissions: &adminOnly},
	}
}
