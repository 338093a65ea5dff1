package models

import (
	"time"
)

// Plan identifiers
const (
	PlanFree     = "free"
	PlanStarter  = "starter"
	PlanBusiness = "business"
)

const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

// Unlimited marks a plan without a monthly document quota
const Unlimited = -1

// Plan describes a price point. Amount is in the payment currency.
type Plan struct {
	ID           string  `json:"id" example:"starter"`
	Name         string  `json:"name" example:"Starter"`
	Amount       float64 `json:"amount" example:"5000"`
	MonthlyQuota int     `json:"monthly_quota" example:"20"`
	Description  string  `json:"description"`
}

// Subscription is the user's current plan. Users without a row are on the
// free plan.
type Subscription struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	UserID           string     `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Plan             string     `json:"plan" gorm:"type:varchar(20);not null;default:'free';index"`
	Status           string     `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	LastPaymentID    *string    `json:"last_payment_id,omitempty" gorm:"type:uuid"`
}

// TableName specifies the table name for the Subscription model
func (Subscription) TableName() string {
	return "subscriptions"
}

// EffectivePlan downgrades to free once the paid period has ended
func (s *Subscription) EffectivePlan(now time.Time) string {
	if s == nil || s.Plan == PlanFree {
		return PlanFree
	}
	if s.Status != SubscriptionActive || s.CurrentPeriodEnd == nil || !now.Before(*s.CurrentPeriodEnd) {
		return PlanFree
	}
	return s.Plan
}

// SubscriptionStatusResponse is returned by GET /subscription
type SubscriptionStatusResponse struct {
	Plan             Plan       `json:"plan"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	UsedThisMonth    int64      `json:"used_this_month"`
	Remaining        int64      `json:"remaining" example:"17"`
}
