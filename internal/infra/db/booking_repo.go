package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create returns domain.ErrDuplicate when the external event id was already
// recorded.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	model := mapBookingToModel(*booking)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicate
		}
		return err
	}
	booking.ID = model.ID
	booking.CreatedAt = model.CreatedAt
	return nil
}

func (r *BookingRepository) GetByExternalEventID(ctx context.Context, externalEventID string) (*domain.Booking, error) {
	var model bookingModel
	if err := r.db.WithContext(ctx).Where("external_event_id = ?", externalEventID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	booking, err := mapBookingToDomain(model)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) MarkCompleted(ctx context.Context, bookingID uint) error {
	result := r.db.WithContext(ctx).Model(&bookingModel{}).Where("id = ?", bookingID).Update("completed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&bookingModel{}).Count(&count).Error
	return count, err
}

func (r *BookingRepository) CountCompleted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&bookingModel{}).Where("completed = ?", true).Count(&count).Error
	return count, err
}

func (r *BookingRepository) CompletedAmounts(ctx context.Context) ([]decimal.Decimal, error) {
	var raw []string
	if err := r.db.WithContext(ctx).Model(&bookingModel{}).Where("completed = ?", true).Pluck("amount", &raw).Error; err != nil {
		return nil, err
	}
	amounts := make([]decimal.Decimal, 0, len(raw))
	for _, value := range raw {
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("booking amount %q: %w", value, err)
		}
		amounts = append(amounts, amount)
	}
	return amounts, nil
}

// MostPopularTier returns the service type with the most bookings. Ties go to
// the alphabetically first tier. Returns domain.ErrNotFound with no bookings.
func (r *BookingRepository) MostPopularTier(ctx context.Context) (domain.Tier, error) {
	var row struct {
		ServiceType string
		Total       int64
	}
	err := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Select("service_type, COUNT(*) AS total").
		Group("service_type").
		Order("total DESC").
		Order("service_type").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return "", err
	}
	if row.ServiceType == "" {
		return "", domain.ErrNotFound
	}
	return domain.Tier(row.ServiceType), nil
}

func mapBookingToDomain(model bookingModel) (domain.Booking, error) {
	amount, err := decimal.NewFromString(model.Amount)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %d amount %q: %w", model.ID, model.Amount, err)
	}
	booking := domain.Booking{
		ID:          model.ID,
		UserID:      model.UserID,
		Tier:        domain.Tier(model.ServiceType),
		ScheduledAt: model.ScheduledAt,
		Completed:   model.Completed,
		Amount:      amount,
		CreatedAt:   model.CreatedAt,
	}
	if model.ExternalEventID != nil {
		booking.ExternalEventID = *model.ExternalEventID
	}
	return booking, nil
}

func mapBookingToModel(booking domain.Booking) bookingModel {
	model := bookingModel{
		ID:          booking.ID,
		UserID:      booking.UserID,
		ServiceType: string(booking.Tier),
		ScheduledAt: booking.ScheduledAt,
		Completed:   booking.Completed,
		Amount:      booking.Amount.String(),
		CreatedAt:   booking.CreatedAt,
	}
	if booking.ExternalEventID != "" {
		eventID := booking.ExternalEventID
		model.ExternalEventID = &eventID
	}
	return model
}
