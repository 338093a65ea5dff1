package repository

import (
	"context"
	"errors"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettleFunc mutates a locked payment and returns the subscription to save,
// or nil to leave subscriptions untouched. sub is nil when the user has none.
type SettleFunc func(p *models.Payment, sub *models.Subscription) (*models.Subscription, error)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new payment
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetByTxRef retrieves a payment by its transaction reference
func (r *PaymentRepository) GetByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("tx_ref = ?", txRef).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// SetCheckoutURL stores the hosted checkout link of a pending payment
func (r *PaymentRepository) SetCheckoutURL(ctx context.Context, id, url string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Update("checkout_url", url).Error
}

// Settle locks the payment row (and the owner's subscription row) for the
// duration of apply, then saves both in the same transaction.
func (r *PaymentRepository) Settle(ctx context.Context, txRef string, apply SettleFunc) (*models.Payment, error) {
	var settled models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tx_ref = ?", txRef).First(&payment).Error; err != nil {
			return err
		}

		var current *models.Subscription
		var sub models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", payment.UserID).First(&sub).Error
		switch {
		case err == nil:
			current = &sub
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		next, err := apply(&payment, current)
		if err != nil {
			return err
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}
		if next != nil {
			if err := tx.Save(next).Error; err != nil {
				return err
			}
		}
		settled = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settled, nil
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	UserID string
	Status string
	From   *time.Time
	To     *time.Time
}

func (r *PaymentRepository) filtered(ctx context.Context, filter PaymentFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

// List returns payments matching filter with pagination, newest first
func (r *PaymentRepository) List(ctx context.Context, filter PaymentFilter, page, pageSize int) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64
	query := r.filtered(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").
		Offset(utils.CalculateOffset(page, pageSize)).
		Limit(pageSize).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ListForReport returns every matching payment with its user, oldest first
func (r *PaymentRepository) ListForReport(ctx context.Context, filter PaymentFilter) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.filtered(ctx, filter).Preload("User").Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// PaymentStats summarises payments for the dashboard
type PaymentStats struct {
	Completed int64   `json:"completed"`
	Pending   int64   `json:"pending"`
	Failed    int64   `json:"failed"`
	Revenue   float64 `json:"revenue"`
}

// Stats aggregates payment counts by status and completed revenue
func (r *PaymentRepository) Stats(ctx context.Context) (PaymentStats, error) {
	var rows []struct {
		Status string
		Count  int64
		Total  float64
	}
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return PaymentStats{}, err
	}
	var stats PaymentStats
	for _, row := range rows {
		switch row.Status {
		case models.PaymentCompleted:
			stats.Completed = row.Count
			stats.Revenue = row.Total
		case models.PaymentPending:
			stats.Pending = row.Count
		case models.PaymentFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}

// ListStalePending returns up to limit pending payments created before
// cutoff, oldest first
func (r *PaymentRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
