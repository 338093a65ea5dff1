package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

type fakeSubs map[string]*models.Subscription

func (f fakeSubs) GetByUserID(_ context.Context, userID string) (*models.Subscription, error) {
	return f[userID], nil
}

type fakeUsage struct {
	count int64
	since time.Time
	err   error
}

func (f *fakeUsage) Create(context.Context, *models.Generation) error {
	if f.err != nil {
		return f.err
	}
	f.count++
	return nil
}

func (f *fakeUsage) CountByUserSince(_ context.Context, _ string, since time.Time) (int64, error) {
	f.since = since
	return f.count, nil
}

var now = time.Date(2025, 3, 17, 14, 0, 0, 0, time.UTC)

func newService(subs fakeSubs, used int64) (*Service, *fakeUsage) {
	usage := &fakeUsage{count: used}
	s := NewService(subs, usage)
	s.now = func() time.Time { return now }
	return s, usage
}

func TestFreePlanQuota(t *testing.T) {
	s, usage := newService(fakeSubs{}, 2)
	require.NoError(t, s.CheckQuota(context.Background(), "u1"))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), usage.since)

	usage.count = 3
	err := s.CheckQuota(context.Background(), "u1")
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuotaExceeded, appErr.Code)
	assert.Equal(t, 402, appErr.HTTPStatus)
}

func TestBusinessPlanIsUnlimited(t *testing.T) {
	end := now.Add(48 * time.Hour)
	s, _ := newService(fakeSubs{"u1": {UserID: "u1", Plan: models.PlanBusiness, Status: models.SubscriptionActive, CurrentPeriodEnd: &end}}, 500)

	require.NoError(t, s.CheckQuota(context.Background(), "u1"))
	status, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, models.Unlimited, status.Remaining)
}

func TestLapsedPlanFallsBackToFree(t *testing.T) {
	end := now.Add(-time.Hour)
	s, _ := newService(fakeSubs{"u1": {UserID: "u1", Plan: models.PlanStarter, Status: models.SubscriptionActive, CurrentPeriodEnd: &end}}, 5)

	status, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, status.Plan.ID)
	assert.Equal(t, models.SubscriptionExpired, status.Status)
	assert.Zero(t, status.Remaining)
}

func TestExtend(t *testing.T) {
	fresh := Extend(nil, "u1", models.PlanStarter, "p1", now)
	assert.Equal(t, now.Add(PeriodLength), *fresh.CurrentPeriodEnd)
	assert.Equal(t, "p1", *fresh.LastPaymentID)

	// renewing early stacks onto the remaining period
	renewed := Extend(fresh, "u1", models.PlanStarter, "p2", now.Add(24*time.Hour))
	assert.Equal(t, now.Add(2*PeriodLength), *renewed.CurrentPeriodEnd)
	assert.Equal(t, now.Add(PeriodLength), *fresh.CurrentPeriodEnd)

	lapsedEnd := now.Add(-10 * 24 * time.Hour)
	lapsed := &models.Subscription{UserID: "u1", Plan: models.PlanStarter, Status: models.SubscriptionExpired, CurrentPeriodEnd: &lapsedEnd}
	assert.Equal(t, now.Add(PeriodLength), *Extend(lapsed, "u1", models.PlanBusiness, "p3", now).CurrentPeriodEnd)
}

func TestGetPlan(t *testing.T) {
	p, ok := GetPlan(models.PlanStarter)
	require.True(t, ok)
	assert.Equal(t, 20, p.MonthlyQuota)
	_, ok = GetPlan("enterprise")
	assert.False(t, ok)
	assert.Len(t, Plans(), 3)
}

func TestRecordGenerationUsesAllowance(t *testing.T) {
	s, usage := newService(fakeSubs{}, 2)
	ctx := context.Background()

	require.NoError(t, s.RecordGeneration(ctx, &models.Generation{UserID: "u1", Type: models.KindPitchDeck}))
	assert.True(t, apperror.HasCode(s.CheckQuota(ctx, "u1"), apperror.CodeQuotaExceeded))

	usage.err = errors.New("db down")
	assert.True(t, apperror.HasCode(s.RecordGeneration(ctx, &models.Generation{UserID: "u1"}), apperror.CodeInternal))
}
