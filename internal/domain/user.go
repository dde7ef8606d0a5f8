package domain

import "time"

type User struct {
	ID               uint
	ExternalID       string
	Username         string
	Email            string
	Specs            string
	TotalBookings    int
	TotalDiagnostics int
	JoinedAt         time.Time
	UpdatedAt        time.Time
}
