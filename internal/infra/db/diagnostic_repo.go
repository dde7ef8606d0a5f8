package db

import (
	"context"
	"errors"

	"github.com/fpsos/fpsbot/internal/domain"
	"gorm.io/gorm"
)

type DiagnosticRepository struct {
	db *gorm.DB
}

func NewDiagnosticRepository(db *gorm.DB) *DiagnosticRepository {
	return &DiagnosticRepository{db: db}
}

func (r *DiagnosticRepository) Create(ctx context.Context, diagnostic *domain.Diagnostic) error {
	model := mapDiagnosticToModel(*diagnostic)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	diagnostic.ID = model.ID
	diagnostic.CreatedAt = model.CreatedAt
	return nil
}

// ListByUser returns the user's diagnostics newest first.
func (r *DiagnosticRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Diagnostic, error) {
	var models []diagnosticModel
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	diagnostics := make([]domain.Diagnostic, 0, len(models))
	for _, model := range models {
		diagnostics = append(diagnostics, mapDiagnosticToDomain(model))
	}
	return diagnostics, nil
}

func (r *DiagnosticRepository) Latest(ctx context.Context, userID string) (*domain.Diagnostic, error) {
	var model diagnosticModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	diagnostic := mapDiagnosticToDomain(model)
	return &diagnostic, nil
}

func (r *DiagnosticRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&diagnosticModel{}).Count(&count).Error
	return count, err
}

func mapDiagnosticToDomain(model diagnosticModel) domain.Diagnostic {
	return domain.Diagnostic{
		ID:             model.ID,
		UserID:         model.UserID,
		RawReport:      model.ReportJSON,
		CriticalCount:  model.CriticalCount,
		WarningCount:   model.WarningCount,
		Recommendation: domain.Tier(model.Recommendation),
		CreatedAt:      model.CreatedAt,
	}
}

func mapDiagnosticToModel(diagnostic domain.Diagnostic) diagnosticModel {
	return diagnosticModel{
		ID:             diagnostic.ID,
		UserID:         diagnostic.UserID,
		ReportJSON:     diagnostic.RawReport,
		CriticalCount:  diagnostic.CriticalCount,
		WarningCount:   diagnostic.WarningCount,
		Recommendation: string(diagnostic.Recommendation),
		CreatedAt:      diagnostic.CreatedAt,
	}
}
