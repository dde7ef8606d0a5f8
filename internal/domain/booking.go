package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID              uint
	UserID          string
	Tier            Tier
	ExternalEventID string
	ScheduledAt     *time.Time
	Completed       bool
	Amount          decimal.Decimal
	CreatedAt       time.Time
}
