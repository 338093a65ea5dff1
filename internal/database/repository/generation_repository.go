package repository

import (
	"context"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"

	"gorm.io/gorm"
)

type GenerationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Create records a generation
func (r *GenerationRepository) Create(ctx context.Context, g *models.Generation) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// CountByUserSince counts generations by userID since the given time,
// including those whose project was later deleted or regenerated
func (r *GenerationRepository) CountByUserSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Generation{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}
