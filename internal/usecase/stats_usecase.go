package usecase

import (
	"context"
	"errors"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/shopspring/decimal"
)

type StatsUsecase struct {
	users       domain.UserRepository
	diagnostics domain.DiagnosticRepository
	bookings    domain.BookingRepository
}

func NewStatsUsecase(users domain.UserRepository, diagnostics domain.DiagnosticRepository, bookings domain.BookingRepository) *StatsUsecase {
	return &StatsUsecase{users: users, diagnostics: diagnostics, bookings: bookings}
}

func (u *StatsUsecase) Collect(ctx context.Context) (*domain.Stats, error) {
	var (
		stats domain.Stats
		err   error
	)
	if stats.TotalUsers, err = u.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalDiagnostics, err = u.diagnostics.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalBookings, err = u.bookings.Count(ctx); err != nil {
		return nil, err
	}
	if stats.CompletedBookings, err = u.bookings.CountCompleted(ctx); err != nil {
		return nil, err
	}

	amounts, err := u.bookings.CompletedAmounts(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = decimal.Sum(decimal.Zero, amounts...)
	stats.ConversionRate = ConversionRate(stats.TotalBookings, stats.TotalDiagnostics)

	tier, err := u.bookings.MostPopularTier(ctx)
	switch {
	case err == nil:
		stats.PopularTier = string(tier)
	case errors.Is(err, domain.ErrNotFound):
		stats.PopularTier = "N/A"
	default:
		return nil, err
	}

	return &stats, nil
}

// ConversionRate is bookings per diagnostic as a percentage with two
// decimals; zero when there are no diagnostics.
func ConversionRate(bookings, diagnostics int64) decimal.Decimal {
	if diagnostics == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(bookings).
		Div(decimal.NewFromInt(diagnostics)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
