package domain

import "github.com/shopspring/decimal"

type Stats struct {
	TotalUsers        int64
	TotalDiagnostics  int64
	TotalBookings     int64
	CompletedBookings int64
	TotalRevenue      decimal.Decimal
	ConversionRate    decimal.Decimal
	PopularTier       string
}
