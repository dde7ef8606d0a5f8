package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type UserRepository interface {
	Upsert(ctx context.Context, user *User) error
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	UpdateSpecs(ctx context.Context, externalID, specs string) error
	IncrementDiagnostics(ctx context.Context, externalID string) error
	IncrementBookings(ctx context.Context, externalID string) error
	Count(ctx context.Context) (int64, error)
}

type DiagnosticRepository interface {
	Create(ctx context.Context, diagnostic *Diagnostic) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Diagnostic, error)
	Latest(ctx context.Context, userID string) (*Diagnostic, error)
	Count(ctx context.Context) (int64, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByExternalEventID(ctx context.Context, externalEventID string) (*Booking, error)
	MarkCompleted(ctx context.Context, bookingID uint) error
	Count(ctx context.Context) (int64, error)
	CountCompleted(ctx context.Context) (int64, error)
	CompletedAmounts(ctx context.Context) ([]decimal.Decimal, error)
	MostPopularTier(ctx context.Context) (Tier, error)
}

// TicketRepository does not enforce the one-open-ticket-per-user rule; callers
// check GetOpenByUser before Create.
type TicketRepository interface {
	Create(ctx context.Context, ticket *Ticket) error
	GetOpenByUser(ctx context.Context, userID string) (*Ticket, error)
	GetOpenByChannel(ctx context.Context, channelID string) (*Ticket, error)
	Close(ctx context.Context, ticketID uint) error
	ListOpen(ctx context.Context) ([]Ticket, error)
}

type TagRepository interface {
	Upsert(ctx context.Context, tag *Tag) error
	// Get returns the tag and bumps its usage count. A miss does not write.
	Get(ctx context.Context, name string) (*Tag, error)
	Delete(ctx context.Context, name string) error
	ListNames(ctx context.Context) ([]string, error)
}
