package repository

import (
	"context"
	"errors"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByUserID returns the user's subscription, or nil when the user has
// never subscribed
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// PlanCount is one row of CountActiveByPlan
type PlanCount struct {
	Plan  string `json:"plan"`
	Count int64  `json:"count"`
}

// CountActiveByPlan groups subscriptions whose period has not ended
func (r *SubscriptionRepository) CountActiveByPlan(ctx context.Context, now time.Time) ([]PlanCount, error) {
	var rows []PlanCount
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Select("plan, COUNT(*) AS count").
		Where("status = ? AND current_period_end > ?", models.SubscriptionActive, now).
		Group("plan").
		Order("plan").
		Scan(&rows).Error
	return rows, err
}

// ExpireEnded marks active subscriptions whose period has ended as expired
func (r *SubscriptionRepository) ExpireEnded(now time.Time) (int64, error) {
	result := r.db.Model(&models.Subscription{}).
		Where("status = ? AND current_period_end <= ?", models.SubscriptionActive, now).
		Update("status", models.SubscriptionExpired)
	return result.RowsAffected, result.Error
}
