package db

import (
	"time"
)

// user_id columns hold the chat platform's external id. They are indexed but
// carry no foreign key: bookings may point at an unresolved key such as an
// email address.

type userModel struct {
	ID               uint   `gorm:"primaryKey"`
	ExternalID       string `gorm:"uniqueIndex;not null"`
	Username         string `gorm:"not null"`
	Email            string `gorm:"not null;default:''"`
	Specs            string `gorm:"type:text;not null;default:''"`
	TotalBookings    int    `gorm:"not null;default:0"`
	TotalDiagnostics int    `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (userModel) TableName() string { return "users" }

type diagnosticModel struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         string `gorm:"index:idx_diagnostics_user_created,priority:1;not null"`
	ReportJSON     string `gorm:"type:text;not null"`
	CriticalCount  int    `gorm:"not null;default:0"`
	WarningCount   int    `gorm:"not null;default:0"`
	Recommendation string `gorm:"not null"`
	CreatedAt      time.Time `gorm:"index:idx_diagnostics_user_created,priority:2"`
}

func (diagnosticModel) TableName() string { return "diagnostics" }

type bookingModel struct {
	ID              uint    `gorm:"primaryKey"`
	UserID          string  `gorm:"index;not null"`
	ServiceType     string  `gorm:"index;not null"`
	ExternalEventID *string `gorm:"uniqueIndex"`
	ScheduledAt     *time.Time
	Completed       bool   `gorm:"index;not null;default:false"`
	Amount          string `gorm:"not null;default:'0'"`
	CreatedAt       time.Time
}

func (bookingModel) TableName() string { return "bookings" }

type ticketModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index:idx_tickets_user_status,priority:1;not null"`
	ChannelID string `gorm:"index;not null"`
	Status    string `gorm:"index:idx_tickets_user_status,priority:2;not null;default:'open'"`
	CreatedAt time.Time
	ClosedAt  *time.Time
}

func (ticketModel) TableName() string { return "tickets" }

type tagModel struct {
	Name       string `gorm:"primaryKey"`
	Content    string `gorm:"type:text;not null"`
	CreatedBy  string `gorm:"not null;default:''"`
	UsageCount int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (tagModel) TableName() string { return "tags" }
