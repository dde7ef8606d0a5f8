package db

import (
	"context"
	"errors"

	"github.com/fpsos/fpsbot/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the user or refreshes the username of an existing row. The
// stored email is only replaced by a non-empty one. On return user holds the
// stored row.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	model := mapUserToModel(*user)
	updates := []string{"updated_at"}
	if model.Username != "" {
		updates = append(updates, "username")
	}
	if model.Email != "" {
		updates = append(updates, "email")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&model).Error
	if err != nil {
		return err
	}

	stored, err := r.GetByExternalID(ctx, user.ExternalID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return mapUserToDomain(model), nil
}

func (r *UserRepository) UpdateSpecs(ctx context.Context, externalID, specs string) error {
	return r.update(ctx, externalID, "specs", specs)
}

func (r *UserRepository) IncrementDiagnostics(ctx context.Context, externalID string) error {
	return r.update(ctx, externalID, "total_diagnostics", gorm.Expr("total_diagnostics + ?", 1))
}

func (r *UserRepository) IncrementBookings(ctx context.Context, externalID string) error {
	return r.update(ctx, externalID, "total_bookings", gorm.Expr("total_bookings + ?", 1))
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userModel{}).Count(&count).Error
	return count, err
}

func (r *UserRepository) update(ctx context.Context, externalID, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&userModel{}).Where("external_id = ?", externalID).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapUserToDomain(model userModel) *domain.User {
	return &domain.User{
		ID:               model.ID,
		ExternalID:       model.ExternalID,
		Username:         model.Username,
		Email:            model.Email,
		Specs:            model.Specs,
		TotalBookings:    model.TotalBookings,
		TotalDiagnostics: model.TotalDiagnostics,
		JoinedAt:         model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func mapUserToModel(user domain.User) userModel {
	return userModel{
		ID:               user.ID,
		ExternalID:       user.ExternalID,
		Username:         user.Username,
		Email:            user.Email,
		Specs:            user.Specs,
		TotalBookings:    user.TotalBookings,
		TotalDiagnostics: user.TotalDiagnostics,
		CreatedAt:        user.JoinedAt,
		UpdatedAt:        user.UpdatedAt,
	}
}
