package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// PeriodLength is how long one payment keeps a paid plan active
const PeriodLength = 30 * 24 * time.Hour

var plans = []models.Plan{
	{ID: models.PlanFree, Name: "Free", Amount: 0, MonthlyQuota: 3, Description: "Three documents every month"},
	{ID: models.PlanStarter, Name: "Starter", Amount: 5000, MonthlyQuota: 20, Description: "Twenty documents every month with every export format"},
	{ID: models.PlanBusiness, Name: "Business", Amount: 15000, MonthlyQuota: models.Unlimited, Description: "Unlimited documents and export archive"},
}

// Plans returns the plan catalog, cheapest first
func Plans() []models.Plan {
	out := make([]models.Plan, len(plans))
	copy(out, plans)
	return out
}

// GetPlan looks up a plan by id
func GetPlan(id string) (models.Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}

// MonthStart is the first instant of now's calendar month in UTC
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Extend returns the subscription after a completed payment for plan. The
// new period runs PeriodLength from the later of now and the current
// period end, so paying early never loses days.
func Extend(current *models.Subscription, userID, plan, paymentID string, now time.Time) *models.Subscription {
	next := &models.Subscription{UserID: userID}
	if current != nil {
		copied := *current
		next = &copied
	}
	start := now
	if next.Status == models.SubscriptionActive && next.CurrentPeriodEnd != nil && next.CurrentPeriodEnd.After(now) {
		start = *next.CurrentPeriodEnd
	}
	end := start.Add(PeriodLength)
	next.Plan = plan
	next.Status = models.SubscriptionActive
	next.CurrentPeriodEnd = &end
	next.LastPaymentID = &paymentID
	return next
}

// Store reads subscriptions
type Store interface {
	GetByUserID(ctx context.Context, userID string) (*models.Subscription, error)
}

// UsageStore is the ledger of generations that quota is charged against
type UsageStore interface {
	Create(ctx context.Context, g *models.Generation) error
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

type Service struct {
	subs  Store
	usage UsageStore
	now   func() time.Time
}

func NewService(subs Store, usage UsageStore) *Service {
	return &Service{subs: subs, usage: usage, now: time.Now}
}

// Status reports the user's effective plan and this month's usage
func (s *Service) Status(ctx context.Context, userID string) (*models.SubscriptionStatusResponse, error) {
	now := s.now()
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to load subscription: %w", err))
	}
	plan, _ := GetPlan(sub.EffectivePlan(now))

	used, err := s.usage.CountByUserSince(ctx, userID, MonthStart(now))
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to count usage: %w", err))
	}

	resp := &models.SubscriptionStatusResponse{
		Plan:          plan,
		Status:        models.SubscriptionActive,
		UsedThisMonth: used,
		Remaining:     models.Unlimited,
	}
	if sub != nil {
		resp.Status = sub.Status
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd
		if plan.ID == models.PlanFree && sub.Plan != models.PlanFree {
			resp.Status = models.SubscriptionExpired
		}
	}
	if plan.MonthlyQuota != models.Unlimited {
		resp.Remaining = int64(plan.MonthlyQuota) - used
		if resp.Remaining < 0 {
			resp.Remaining = 0
		}
	}
	return resp, nil
}

// CheckQuota fails with QUOTA_EXCEEDED when the user has no documents left
// this month
func (s *Service) CheckQuota(ctx context.Context, userID string) error {
	status, err := s.Status(ctx, userID)
	if err != nil {
		return err
	}
	if status.Plan.MonthlyQuota != models.Unlimited && status.Remaining <= 0 {
		return apperror.QuotaExceeded(fmt.Sprintf(
			"monthly limit of %d documents reached on the %s plan", status.Plan.MonthlyQuota, status.Plan.Name))
	}
	return nil
}

// RecordGeneration charges one generation to the user's monthly usage
func (s *Service) RecordGeneration(ctx context.Context, g *models.Generation) error {
	if err := s.usage.Create(ctx, g); err != nil {
		return apperror.Internal(fmt.Errorf("failed to record usage: %w", err))
	}
	return nil
}
