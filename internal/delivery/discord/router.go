package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/usecase"
	"go.uber.org/zap"
)

type replier interface {
	Reply(ctx context.Context, msg domain.ChatMessage, out *discordgo.MessageSend) error
}

type diagnosticAnalyzer interface {
	AnalyzeAttachment(ctx context.Context, owner domain.ChatUser, att domain.Attachment) (*usecase.DiagnosticResult, error)
}

type ticketRelay interface {
	RelayFromUser(ctx context.Context, msg domain.ChatMessage) (bool, error)
	RelayFromStaff(ctx context.Context, msg domain.ChatMessage) (bool, error)
}

type tagLookup interface {
	Lookup(ctx context.Context, name string) (*domain.Tag, error)
}

type eventRecorder interface {
	ChatEvent(eventType string)
	DiagnosticProcessed(outcome string)
}

// Router decides what, if anything, the bot says back to a chat message.
type Router struct {
	diagnostics diagnosticAnalyzer
	tickets     ticketRelay
	tags        tagLookup
	reply       replier
	metrics     eventRecorder
	links       Links
	logger      *zap.Logger
}

func NewRouter(diagnostics diagnosticAnalyzer, tickets ticketRelay, tags tagLookup, reply replier, metrics eventRecorder, links Links, logger *zap.Logger) *Router {
	return &Router{
		diagnostics: diagnostics,
		tickets:     tickets,
		tags:        tags,
		reply:       reply,
		metrics:     metrics,
		links:       links,
		logger:      logger,
	}
}

// HandleMessage runs the first matching route. selfID is the bot's own user id.
func (r *Router) HandleMessage(ctx context.Context, msg domain.ChatMessage, selfID string) {
	if msg.Author.ID == selfID || msg.Author.IsBot {
		return
	}
	r.metrics.ChatEvent("message")

	for _, att := range msg.Attachments {
		if usecase.IsDiagnosticAttachment(att) {
			r.handleDiagnostic(ctx, msg, att)
			return
		}
	}

	if msg.IsDirect {
		relayed, err := r.tickets.RelayFromUser(ctx, msg)
		if err != nil {
			r.logger.Warn("ticket relay from user failed", zap.String("user_id", msg.Author.ID), zap.Error(err))
		}
		if relayed {
			return
		}
	} else {
		relayed, err := r.tickets.RelayFromStaff(ctx, msg)
		if err != nil {
			r.logger.Warn("ticket relay from staff failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		}
		if relayed {
			return
		}
	}

	if name, ok := usecase.ParseTagShortcut(msg.Content); ok {
		r.handleTag(ctx, msg, name)
		return
	}

	content := strings.ToLower(strings.TrimSpace(msg.Content))
	switch {
	case greetings[content]:
		r.send(ctx, msg, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{greetingEmbed(msg.Author)},
			Components: welcomeComponents(),
		})
	case hasBookingIntent(content):
		r.send(ctx, msg, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "📅 Schedule Your Optimization",
				Description: "Before you book, let's check which package is best for your system.",
				Color:       colorPurple,
			}},
			Components: welcomeComponents(),
		})
	}
}

func (r *Router) handleDiagnostic(ctx context.Context, msg domain.ChatMessage, att domain.Attachment) {
	result, err := r.diagnostics.AnalyzeAttachment(ctx, msg.Author, att)
	if err != nil {
		r.metrics.DiagnosticProcessed(diagnosticOutcome(err))
		r.logger.Warn("diagnostic upload rejected",
			zap.String("user_id", msg.Author.ID),
			zap.String("filename", att.Filename),
			zap.Error(err),
		)
		r.send(ctx, msg, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{diagnosticErrorMessage(err)}})
		return
	}
	r.metrics.DiagnosticProcessed(string(result.Recommendation.Tier))

	out := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{diagnosticResultEmbed(result, msg.Author)}}
	if result.Recommendation.Tier.Bookable() {
		out.Components = bookingButton(r.links, result.Recommendation.Tier)
	}
	r.send(ctx, msg, out)
}

// A missed shortcut stays silent; "!" is also common in normal chat.
func (r *Router) handleTag(ctx context.Context, msg domain.ChatMessage, name string) {
	tag, err := r.tags.Lookup(ctx, name)
	if err != nil {
		if !errors.Is(err, usecase.ErrTagNotFound) {
			r.logger.Warn("tag lookup failed", zap.String("tag", name), zap.Error(err))
		}
		return
	}
	r.send(ctx, msg, &discordgo.MessageSend{Content: tag.Content})
}

func (r *Router) send(ctx context.Context, msg domain.ChatMessage, out *discordgo.MessageSend) {
	if err := r.reply.Reply(ctx, msg, out); err != nil {
		r.logger.Warn("failed to reply", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func diagnosticErrorMessage(err error) *discordgo.MessageEmbed {
	var missing *usecase.MissingFieldError
	switch {
	case errors.As(err, &missing):
		return diagnosticErrorEmbed("Incomplete Diagnostic Data",
			fmt.Sprintf("Missing required field: `%s`\n\nPlease re-run the diagnostic tool.", missing.Field))
	case errors.Is(err, usecase.ErrInvalidFormat):
		return diagnosticErrorEmbed("Invalid JSON File",
			"The file you uploaded is not a valid diagnostic report.\n\nPlease run the FPSOS PowerShell diagnostic tool and upload the generated file.")
	case errors.Is(err, usecase.ErrAttachmentTooLarge):
		return diagnosticErrorEmbed("File Too Large", "Diagnostic reports are small text files. Please upload the file the tool generated.")
	default:
		return diagnosticErrorEmbed("Processing Error", "Something went wrong while analyzing your report. Please try again or contact support.")
	}
}

func diagnosticOutcome(err error) string {
	switch {
	case errors.Is(err, usecase.ErrMissingField):
		return "missing_field"
	case errors.Is(err, usecase.ErrInvalidFormat):
		return "invalid"
	case errors.Is(err, usecase.ErrAttachmentTooLarge):
		return "too_large"
	default:
		return "error"
	}
}

func hasBookingIntent(content string) bool {
	for _, word := range bookingWords {
		if strings.Contains(content, word) {
			return true
		}
	}
	return false
}
