package db

import (
	"context"
	"errors"

	"github.com/fpsos/fpsbot/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository expects names already passed through domain.NormalizeTagName.
type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Upsert(ctx context.Context, tag *domain.Tag) error {
	model := tagModel{
		Name:      tag.Name,
		Content:   tag.Content,
		CreatedBy: tag.CreatedBy,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "created_by", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return err
	}

	var stored tagModel
	if err := r.db.WithContext(ctx).Where("name = ?", tag.Name).First(&stored).Error; err != nil {
		return err
	}
	*tag = mapTagToDomain(stored)
	return nil
}

func (r *TagRepository) Get(ctx context.Context, name string) (*domain.Tag, error) {
	var model tagModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	err := r.db.WithContext(ctx).
		Model(&tagModel{}).
		Where("name = ?", name).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
	if err != nil {
		return nil, err
	}

	tag := mapTagToDomain(model)
	tag.UsageCount++
	return &tag, nil
}

func (r *TagRepository) Delete(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&tagModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TagRepository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&tagModel{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func mapTagToDomain(model tagModel) domain.Tag {
	return domain.Tag{
		Name:       model.Name,
		Content:    model.Content,
		CreatedBy:  model.CreatedBy,
		UsageCount: model.UsageCount,
		CreatedAt:  model.CreatedAt,
	}
}
