package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, owner domain.ChatUser, att domain.Attachment) (*usecase.DiagnosticResult, error)
	calls       int
}

func (f *fakeAnalyzer) AnalyzeAttachment(ctx context.Context, owner domain.ChatUser, att domain.Attachment) (*usecase.DiagnosticResult, error) {
	f.calls++
	return f.AnalyzeFunc(ctx, owner, att)
}

type fakeRelay struct {
	FromUserFunc  func(ctx context.Context, msg domain.ChatMessage) (bool, error)
	FromStaffFunc func(ctx context.Context, msg domain.ChatMessage) (bool, error)
}

func (f *fakeRelay) RelayFromUser(ctx context.Context, msg domain.ChatMessage) (bool, error) {
	if f.FromUserFunc == nil {
		return false, nil
	}
	return f.FromUserFunc(ctx, msg)
}

func (f *fakeRelay) RelayFromStaff(ctx context.Context, msg domain.ChatMessage) (bool, error) {
	if f.FromStaffFunc == nil {
		return false, nil
	}
	return f.FromStaffFunc(ctx, msg)
}

type fakeTagLookup struct {
	tags map[string]string
}

func (f *fakeTagLookup) Lookup(_ context.Context, name string) (*domain.Tag, error) {
	content, ok := f.tags[name]
	if !ok {
		return nil, usecase.ErrTagNotFound
	}
	return &domain.Tag{Name: name, Content: content}, nil
}

type recordingReplier struct {
	sent []*discordgo.MessageSend
}

func (r *recordingReplier) Reply(_ context.Context, _ domain.ChatMessage, out *discordgo.MessageSend) error {
	r.sent = append(r.sent, out)
	return nil
}

type fakeRecorder struct {
	events   []string
	outcomes []string
	opened   int
	closed   int
}

func (f *fakeRecorder) ChatEvent(eventType string)         { f.events = append(f.events, eventType) }
func (f *fakeRecorder) DiagnosticProcessed(outcome string) { f.outcomes = append(f.outcomes, outcome) }
func (f *fakeRecorder) TicketOpened()                      { f.opened++ }
func (f *fakeRecorder) TicketClosed()                      { f.closed++ }

var testLinks = Links{BookingURL: "https://fpsos.gg/book", DiagnosticToolURL: "https://fpsos.gg/tool.ps1"}

type routerFixture struct {
	router   *Router
	analyzer *fakeAnalyzer
	relay    *fakeRelay
	replies  *recordingReplier
	metrics  *fakeRecorder
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		analyzer: &fakeAnalyzer{AnalyzeFunc: func(context.Context, domain.ChatUser, domain.Attachment) (*usecase.DiagnosticResult, error) {
			return nil, errors.New("unexpected call")
		}},
		relay:   &fakeRelay{},
		replies: &recordingReplier{},
		metrics: &fakeRecorder{},
	}
	tags := &fakeTagLookup{tags: map[string]string{"hpet": "Disable HPET in the BIOS."}}
	f.router = NewRouter(f.analyzer, f.relay, tags, f.replies, f.metrics, testLinks, zap.NewNop())
	return f
}

func guildMessage(content string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Author:    domain.ChatUser{ID: "u1", Username: "player"},
		Content:   content,
	}
}

func TestRouter_IgnoresSelfAndBots(t *testing.T) {
	f := newRouterFixture()

	own := guildMessage("hi")
	own.Author.ID = "bot"
	f.router.HandleMessage(context.Background(), own, "bot")

	other := guildMessage("hi")
	other.Author.IsBot = true
	f.router.HandleMessage(context.Background(), other, "bot")

	assert.Empty(t, f.replies.sent)
	assert.Empty(t, f.metrics.events)
}

func TestRouter_DiagnosticUpload(t *testing.T) {
	f := newRouterFixture()
	f.analyzer.AnalyzeFunc = func(_ context.Context, owner domain.ChatUser, att domain.Attachment) (*usecase.DiagnosticResult, error) {
		assert.Equal(t, "u1", owner.ID)
		assert.Equal(t, "report.JSON", att.Filename)
		return &usecase.DiagnosticResult{
			Report:         domain.Report{Critical: []string{"HPET enabled"}},
			Recommendation: usecase.Score(1, 0),
		}, nil
	}

	msg := guildMessage("here you go hi")
	msg.Attachments = []domain.Attachment{{Filename: "notes.txt"}, {Filename: "report.JSON", URL: "https://cdn/report.json"}}
	f.router.HandleMessage(context.Background(), msg, "bot")

	require.Len(t, f.replies.sent, 1)
	out := f.replies.sent[0]
	require.Len(t, out.Embeds, 1)
	assert.Equal(t, "🎯 Diagnostic Analysis Complete", out.Embeds[0].Title)
	assert.Equal(t, colorWarning, out.Embeds[0].Color)

	require.Len(t, out.Components, 1)
	row := out.Components[0].(discordgo.ActionsRow)
	button := row.Components[0].(discordgo.Button)
	assert.Equal(t, "https://fpsos.gg/book?package=full", button.URL)
	assert.Equal(t, []string{"full"}, f.metrics.outcomes)
}

func TestRouter_DiagnosticGoodResultHasNoBookingButton(t *testing.T) {
	f := newRouterFixture()
	f.analyzer.AnalyzeFunc = func(context.Context, domain.ChatUser, domain.Attachment) (*usecase.DiagnosticResult, error) {
		return &usecase.DiagnosticResult{Recommendation: usecase.Score(0, 0)}, nil
	}

	msg := guildMessage("")
	msg.Attachments = []domain.Attachment{{Filename: "diag.json"}}
	f.router.HandleMessage(context.Background(), msg, "bot")

	require.Len(t, f.replies.sent, 1)
	assert.Empty(t, f.replies.sent[0].Components)
	assert.Equal(t, colorSuccess, f.replies.sent[0].Embeds[0].Color)
}

func TestRouter_DiagnosticErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		title   string
		outcome string
	}{
		{name: "invalid json", err: usecase.ErrInvalidFormat, title: "❌ Invalid JSON File", outcome: "invalid"},
		{name: "missing field", err: &usecase.MissingFieldError{Field: "warnings"}, title: "❌ Incomplete Diagnostic Data", outcome: "missing_field"},
		{name: "too large", err: usecase.ErrAttachmentTooLarge, title: "❌ File Too Large", outcome: "too_large"},
		{name: "store failure", err: errors.New("disk full"), title: "❌ Processing Error", outcome: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture()
			f.analyzer.AnalyzeFunc = func(context.Context, domain.ChatUser, domain.Attachment) (*usecase.DiagnosticResult, error) {
				return nil, tt.err
			}
			msg := guildMessage("")
			msg.Attachments = []domain.Attachment{{Filename: "diag.json"}}
			f.router.HandleMessage(context.Background(), msg, "bot")

			require.Len(t, f.replies.sent, 1)
			assert.Equal(t, tt.title, f.replies.sent[0].Embeds[0].Title)
			assert.Equal(t, colorError, f.replies.sent[0].Embeds[0].Color)
			assert.Equal(t, []string{tt.outcome}, f.metrics.outcomes)
		})
	}
}

func TestRouter_MissingFieldNamesTheField(t *testing.T) {
	embed := diagnosticErrorMessage(&usecase.MissingFieldError{Field: "critical"})
	assert.Contains(t, embed.Description, "`critical`")
}

func TestRouter_DirectMessageRelayedToTicket(t *testing.T) {
	f := newRouterFixture()
	var relayed domain.ChatMessage
	f.relay.FromUserFunc = func(_ context.Context, msg domain.ChatMessage) (bool, error) {
		relayed = msg
		return true, nil
	}

	msg := guildMessage("hi")
	msg.GuildID = ""
	msg.IsDirect = true
	f.router.HandleMessage(context.Background(), msg, "bot")

	assert.Equal(t, "hi", relayed.Content)
	assert.Empty(t, f.replies.sent)
}

func TestRouter_DirectMessageWithoutTicketFallsThrough(t *testing.T) {
	f := newRouterFixture()
	f.relay.FromUserFunc = func(context.Context, domain.ChatMessage) (bool, error) {
		return false, nil
	}

	msg := guildMessage("Hello")
	msg.IsDirect = true
	f.router.HandleMessage(context.Background(), msg, "bot")

	require.Len(t, f.replies.sent, 1)
	assert.Equal(t, "👋 Hello! I'm the FPSOS Assistant", f.replies.sent[0].Embeds[0].Title)
}

func TestRouter_StaffMessageInTicketRelayed(t *testing.T) {
	f := newRouterFixture()
	called := false
	f.relay.FromStaffFunc = func(_ context.Context, msg domain.ChatMessage) (bool, error) {
		called = true
		return true, nil
	}

	f.router.HandleMessage(context.Background(), guildMessage("we'll look at it"), "bot")

	assert.True(t, called)
	assert.Empty(t, f.replies.sent)
}

func TestRouter_RelayErrorStillRoutes(t *testing.T) {
	f := newRouterFixture()
	f.relay.FromStaffFunc = func(context.Context, domain.ChatMessage) (bool, error) {
		return false, errors.New("store down")
	}

	f.router.HandleMessage(context.Background(), guildMessage("yo"), "bot")

	require.Len(t, f.replies.sent, 1)
}

func TestRouter_TagShortcut(t *testing.T) {
	f := newRouterFixture()

	f.router.HandleMessage(context.Background(), guildMessage("!HPET please"), "bot")
	require.Len(t, f.replies.sent, 1)
	assert.Equal(t, "Disable HPET in the BIOS.", f.replies.sent[0].Content)

	f.router.HandleMessage(context.Background(), guildMessage("!unknown"), "bot")
	assert.Len(t, f.replies.sent, 1)
}

func TestRouter_Greetings(t *testing.T) {
	for _, greeting := range []string{"hi", "hello", "hey", "hello bot", "yo", "sup", "  HEY "} {
		f := newRouterFixture()
		f.router.HandleMessage(context.Background(), guildMessage(greeting), "bot")
		require.Len(t, f.replies.sent, 1, greeting)
		assert.Equal(t, "👋 Hello! I'm the FPSOS Assistant", f.replies.sent[0].Embeds[0].Title)
	}
}

func TestRouter_BookingIntent(t *testing.T) {
	f := newRouterFixture()
	f.router.HandleMessage(context.Background(), guildMessage("What is your pricing?"), "bot")

	require.Len(t, f.replies.sent, 1)
	assert.Equal(t, "📅 Schedule Your Optimization", f.replies.sent[0].Embeds[0].Title)
	assert.NotEmpty(t, f.replies.sent[0].Components)
}

func TestRouter_UnmatchedMessageIsSilent(t *testing.T) {
	f := newRouterFixture()
	f.router.HandleMessage(context.Background(), guildMessage("gg wp"), "bot")

	assert.Empty(t, f.replies.sent)
	assert.Equal(t, []string{"message"}, f.metrics.events)
}
