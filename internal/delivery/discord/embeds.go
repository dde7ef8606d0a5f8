package discord

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/usecase"
)

const (
	colorPurple  = 0x680036
	colorOrange  = 0xE89900
	colorBlue    = 0x007AFF
	colorSuccess = 0x00FF90
	colorWarning = 0xFFD600
	colorError   = 0xFF1744
)

const (
	buttonTicketOpen  = "ticket:open"
	buttonTicketClose = "ticket:close"
	buttonDiagTool    = "diag:tool"
	buttonPackages    = "book:packages"
)

const maxListedIssues = 5

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hello bot": true, "yo": true, "sup": true,
}

var bookingWords = []string{"book", "session", "schedule", "calendar", "appointment", "packages", "pricing"}

// Links is the set of external URLs shown to members.
type Links struct {
	BookingURL        string
	DiagnosticToolURL string
}

func (l Links) booking(tier domain.Tier) string {
	u, err := url.Parse(l.BookingURL)
	if err != nil {
		return l.BookingURL
	}
	q := u.Query()
	q.Set("package", string(tier))
	u.RawQuery = q.Encode()
	return u.String()
}

func welcomeEmbed(member domain.ChatUser) *discordgo.MessageEmbed {
	name := member.Name()
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("👋 Welcome to the Elite Circle, %s!", name),
		Description: fmt.Sprintf("Glad to have you here, **%s**.\n\n", name) +
			"We specialize in pushing **CS2 performance** to its absolute limit. " +
			"Whether you're looking for a quick fix or a complete system overhaul, we've got you covered.\n\n" +
			"**Let's start by analyzing your rig.**\n" +
			"Run `/diagnostic` or upload your diagnostic JSON here and I'll give you a personalized recommendation.",
		Color:  colorBlue,
		Footer: &discordgo.MessageEmbedFooter{Text: "FPS Optimization Station • Official Bot"},
	}
	if member.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: member.AvatarURL}
	}
	return embed
}

func welcomeComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "🔬 Get Diagnostic Tool", Style: discordgo.PrimaryButton, CustomID: buttonDiagTool},
			discordgo.Button{Label: "📅 Book Session Directly", Style: discordgo.SecondaryButton, CustomID: buttonPackages},
			discordgo.Button{Label: "🎫 Open Ticket", Style: discordgo.SecondaryButton, CustomID: buttonTicketOpen},
		}},
	}
}

func greetingEmbed(author domain.ChatUser) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "👋 Hello! I'm the FPSOS Assistant",
		Description: fmt.Sprintf("Hey <@%s>! How can I assist you today?\n\nI specialize in **CS2 System Optimization**.", author.ID),
		Color:       colorBlue,
	}
}

func packagesEmbed() *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "📦 Service Packages",
		Description: "Before you book, run `/diagnostic` so we can check which package is best for your system.",
		Color:       colorPurple,
	}
	for _, tier := range domain.Tiers() {
		pkg, _ := domain.PackageFor(tier)
		lines := make([]string, 0, len(pkg.Features)+1)
		lines = append(lines, pkg.Summary)
		for _, feature := range pkg.Features {
			lines = append(lines, "• "+feature)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s - %s (%s)", pkg.Name, domain.PriceLabel(pkg.PriceAED), pkg.DurationTxt),
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func packageButtons(links Links) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(domain.Tiers()))
	for _, tier := range domain.Tiers() {
		pkg, _ := domain.PackageFor(tier)
		buttons = append(buttons, discordgo.Button{
			Label: pkg.Name,
			Style: discordgo.LinkButton,
			URL:   links.booking(tier),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func bookingButton(links Links, tier domain.Tier) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "📅 Book Session", Style: discordgo.LinkButton, URL: links.booking(tier)},
		}},
	}
}

func diagnosticPromptEmbed(links Links) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🎯 CS2 System Diagnostic",
		Description: fmt.Sprintf("1. Download and run the [FPSOS CS2 Suite](%s) in PowerShell.\n", links.DiagnosticToolURL) +
			"2. Upload the generated `.json` report here.\n" +
			"3. I'll analyze it and recommend the right package.",
		Color: colorPurple,
	}
}

func manualDiagnosticEmbed(links Links) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🔬 Manual Diagnostic Request",
		Description: fmt.Sprintf("An admin has requested a system diagnostic.\nPlease [download the tool](%s), run it and upload the generated `.json` report here.", links.DiagnosticToolURL),
		Color:       colorPurple,
	}
}

func diagnosticResultEmbed(result *usecase.DiagnosticResult, author domain.ChatUser) *discordgo.MessageEmbed {
	rec := result.Recommendation
	embed := &discordgo.MessageEmbed{
		Title:       "🎯 Diagnostic Analysis Complete",
		Description: fmt.Sprintf("**Recommendation:** %s\n%s", rec.PackageName, rec.Reason),
		Color:       recommendationColor(rec.Tier),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Diagnostic saved • " + author.Name()},
	}

	if sys := result.Report.System; !sys.Empty() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "💻 System",
			Value: fmt.Sprintf("**CPU:** %s\n**GPU:** %s\n**RAM:** %s GB\n**Network:** %s",
				orUnknown(sys.CPU), orUnknown(sys.GPU), orUnknown(sys.RAM), orUnknown(sys.Network)),
		})
	}
	if len(result.Report.Critical) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("⚠️ Critical Issues (%d)", len(result.Report.Critical)),
			Value: issueList("❌", result.Report.Critical),
		})
	}
	if len(result.Report.Warnings) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("⚠️ Warnings (%d)", len(result.Report.Warnings)),
			Value: issueList("⚠️", result.Report.Warnings),
		})
	}

	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "💰 Investment", Value: rec.PriceLabel, Inline: true},
		&discordgo.MessageEmbedField{Name: "📊 Health Score", Value: fmt.Sprintf("%d/100", rec.HealthScore), Inline: true},
	)
	return embed
}

func diagnosticErrorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "❌ " + title, Description: description, Color: colorError}
}

func bookingConfirmationEmbed(booking domain.Booking) *discordgo.MessageEmbed {
	pkg, ok := domain.PackageFor(booking.Tier)
	name, duration := "Optimization", "3-4 hours"
	if ok {
		name, duration = pkg.Name, pkg.DurationTxt
	}
	when := "To be confirmed"
	if booking.ScheduledAt != nil {
		when = booking.ScheduledAt.UTC().Format("2006-01-02 15:04 UTC")
	}

	return &discordgo.MessageEmbed{
		Title:       "✅ Booking Confirmed!",
		Description: fmt.Sprintf("Your **%s** session is scheduled!", name),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📅 Session Date", Value: when},
			{Name: "💰 Price", Value: domain.PriceLabel(booking.Amount), Inline: true},
			{Name: "⏱️ Duration", Value: duration, Inline: true},
			{Name: "📋 Pre-Session Checklist", Value: "**Before your session:**\n" +
				"1. ✅ Install AnyDesk: https://anydesk.com/download\n" +
				"2. ✅ Update GPU drivers to latest version\n" +
				"3. ✅ Close all games and applications\n" +
				"4. ✅ Join FPSOS Discord voice channel 15 minutes before\n" +
				"5. ✅ Have payment ready (bank transfer or card)"},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "See you soon! - FPSOS Team"},
	}
}

func resourcesEmbed(links Links) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🚀 FPSOS Optimization & Resource Hub",
		Description: "Everything you need to squeeze every frame out of your system and minimize input latency.\n\n**Official Links & Tools:**",
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🌳 Linktree (DDU & NVCleanInstall)", Value: "👉 [linktr.ee/t1glish](https://linktr.ee/t1glish)\n*Download recommended DDU versions and NVCleanInstall profiles.*"},
			{Name: "🔬 FPSOS CS2 Suite", Value: fmt.Sprintf("👉 [Download Script](%s)\n*Interrupt affinity, Process Lasso profiles, and system diagnostics.*", links.DiagnosticToolURL), Inline: true},
			{Name: "📚 Optimization Guide", Value: "👉 [Read Guide](https://fpsos.gg/guides/basic-optimization)\n*Step-by-step walkthrough for a responsive system.*", Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "FPSOS.GG • Subtick-Perfect Performance"},
	}
}

func infoEmbed(latency time.Duration) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "ℹ️ About FPSOS",
		Description: "**Frame Per Second Operating System**\n\nProfessional PC optimization specialists for competitive CS2 players.",
		Color:       colorPurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🎯 Our Mission", Value: "Maximize your CS2 performance through expert system optimization"},
			{Name: "📊 Bot Latency", Value: fmt.Sprintf("%dms", latency.Milliseconds())},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Bot developed for FPSOS.gg"},
	}
}

func statsEmbed(stats *domain.Stats, requestedBy string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📊 FPSOS Bot Statistics",
		Description: "Current performance metrics",
		Color:       colorPurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👥 Total Users", Value: fmt.Sprint(stats.TotalUsers), Inline: true},
			{Name: "🔬 Diagnostics Run", Value: fmt.Sprint(stats.TotalDiagnostics), Inline: true},
			{Name: "📅 Total Bookings", Value: fmt.Sprint(stats.TotalBookings), Inline: true},
			{Name: "✅ Completed Sessions", Value: fmt.Sprint(stats.CompletedBookings), Inline: true},
			{Name: "💰 Total Revenue", Value: "AED " + stats.TotalRevenue.StringFixed(2), Inline: true},
			{Name: "📈 Conversion Rate", Value: stats.ConversionRate.StringFixed(2) + "%", Inline: true},
			{Name: "🏆 Popular Service", Value: stats.PopularTier},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Requested by " + requestedBy},
	}
}

func researchEmbed(query string, results []domain.SearchResult) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "🔎 Research: " + query, Color: colorPurple}
	if len(results) == 0 {
		embed.Description = "No results found."
		return embed
	}
	for _, item := range results {
		title := item.Title
		if title == "" {
			title = "Result"
		}
		desc := item.Description
		if desc == "" {
			desc = "No description"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  title,
			Value: fmt.Sprintf("%s\n[Link](%s)", shorten(desc, 200), item.URL),
		})
	}
	return embed
}

func profileEmbed(profile *usecase.Profile) *discordgo.MessageEmbed {
	specs := profile.User.Specs
	if specs == "" {
		specs = "No specs saved."
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🖥️ Specs: " + profile.User.Username,
		Description: specs,
		Color:       colorBlue,
	}
	if len(profile.Diagnostics) > 0 {
		lines := make([]string, 0, len(profile.Diagnostics))
		for _, d := range profile.Diagnostics {
			lines = append(lines, fmt.Sprintf("%s • %s (%d critical, %d warnings)",
				d.CreatedAt.UTC().Format("2006-01-02"), d.Recommendation, d.CriticalCount, d.WarningCount))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🔬 Recent Diagnostics", Value: strings.Join(lines, "\n")})
	}
	return embed
}

func ticketControlsMessage(owner domain.ChatUser, staffRoleID string) *discordgo.MessageSend {
	content := fmt.Sprintf("🔔 New ticket from <@%s>. Messages here are relayed to their DMs.", owner.ID)
	if staffRoleID != "" {
		content += fmt.Sprintf("\n<@&%s>", staffRoleID)
	}
	return &discordgo.MessageSend{
		Content: content,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🔒 Close Ticket", Style: discordgo.DangerButton, CustomID: buttonTicketClose},
			}},
		},
	}
}

func recommendationColor(tier domain.Tier) int {
	switch tier {
	case domain.TierExtreme:
		return colorError
	case domain.TierFull:
		return colorWarning
	case domain.TierQuick:
		return colorBlue
	default:
		return colorSuccess
	}
}

func issueList(marker string, issues []string) string {
	limit := len(issues)
	if limit > maxListedIssues {
		limit = maxListedIssues
	}
	lines := make([]string, 0, limit+1)
	for _, issue := range issues[:limit] {
		lines = append(lines, marker+" "+issue)
	}
	if len(issues) > maxListedIssues {
		lines = append(lines, fmt.Sprintf("... and %d more", len(issues)-maxListedIssues))
	}
	return strings.Join(lines, "\n")
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}

func shorten(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
