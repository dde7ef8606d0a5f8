package domain

import "time"

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

type Ticket struct {
	ID        uint
	UserID    string
	ChannelID string
	Status    TicketStatus
	CreatedAt time.Time
}

func (t Ticket) IsOpen() bool {
	return t.Status == TicketOpen
}
