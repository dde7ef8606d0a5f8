package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/fpsos/fpsbot/internal/domain"
)

const HelpText = `Commands:
/start - show this console
/help - show this help
/stats - business totals
/tickets - open support tickets

New bookings and opened tickets are posted here automatically.
`

const maxMessageLen = 3800

func formatStats(stats *domain.Stats) string {
	var builder strings.Builder
	builder.WriteString("📊 FPSOS stats\n")
	builder.WriteString(fmt.Sprintf("Users: %d\n", stats.TotalUsers))
	builder.WriteString(fmt.Sprintf("Diagnostics: %d\n", stats.TotalDiagnostics))
	builder.WriteString(fmt.Sprintf("Bookings: %d (%d completed)\n", stats.TotalBookings, stats.CompletedBookings))
	builder.WriteString(fmt.Sprintf("Revenue: %s\n", domain.PriceLabel(stats.TotalRevenue)))
	builder.WriteString(fmt.Sprintf("Conversion: %s%%\n", stats.ConversionRate.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Popular package: %s", stats.PopularTier))
	return builder.String()
}

func formatTickets(tickets []domain.Ticket) string {
	if len(tickets) == 0 {
		return "No open tickets."
	}

	header := fmt.Sprintf("Open tickets (%d):\n", len(tickets))
	var builder strings.Builder
	builder.WriteString(header)
	remaining := 0
	for i, ticket := range tickets {
		line := fmt.Sprintf("#%d user %s channel %s since %s\n", ticket.ID, ticket.UserID, ticket.ChannelID, ticket.CreatedAt.UTC().Format(time.RFC822))
		if builder.Len()+len(line) > maxMessageLen {
			remaining = len(tickets) - i
			break
		}
		builder.WriteString(line)
	}
	if remaining > 0 {
		builder.WriteString(fmt.Sprintf("...and %d more", remaining))
	}
	return builder.String()
}

func truncate(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	return text[:maxMessageLen-3] + "..."
}
