package repository

import (
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"

	"gorm.io/gorm"
)

type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create creates a new activity log
func (r *ActivityLogRepository) Create(log *models.ActivityLog) error {
	return r.db.Create(log).Error
}

// List retrieves logs matching filter, newest first
func (r *ActivityLogRepository) List(filter models.ActivityFilter, page, pageSize int) ([]models.ActivityLog, int64, error) {
	var logs []models.ActivityLog
	var total int64
	query := r.db.Model(&models.ActivityLog{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").
		Limit(pageSize).
		Offset(utils.CalculateOffset(page, pageSize)).
		Find(&logs).Error
	return logs, total, err
}

// DeleteOldLogs deletes logs older than specified days
func (r *ActivityLogRepository) DeleteOldLogs(days int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -days)
	result := r.db.Where("created_at < ?", cutoffDate).Delete(&models.ActivityLog{})
	return result.RowsAffected, result.Error
}
