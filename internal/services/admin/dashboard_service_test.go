package admin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/cache"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/excel"
)

type fakeStats struct {
	userCalls int32
	failUsers bool
}

func (f *fakeStats) CountUsers(context.Context) (int64, int64, error) {
	atomic.AddInt32(&f.userCalls, 1)
	if f.failUsers {
		return 0, 0, errors.New("connection reset")
	}
	return 12, 10, nil
}

func (f *fakeStats) CountSignupsSince(context.Context, time.Time) (int64, error) { return 4, nil }

func (f *fakeStats) Count(context.Context) (int64, error) { return 30, nil }

func (f *fakeStats) CountByType(context.Context) ([]repository.TypeCount, error) {
	return []repository.TypeCount{{Type: models.KindPitchDeck, Count: 18}, {Type: models.KindBrandingKit, Count: 12}}, nil
}

func (f *fakeStats) Stats(context.Context) (repository.PaymentStats, error) {
	return repository.PaymentStats{Completed: 3, Failed: 1, Revenue: 25000}, nil
}

func (f *fakeStats) List(context.Context, repository.PaymentFilter, int, int) ([]models.Payment, int64, error) {
	return []models.Payment{{TxRef: "tx-1"}}, 1, nil
}

func (f *fakeStats) ListForReport(context.Context, repository.PaymentFilter) ([]models.Payment, error) {
	return []models.Payment{{TxRef: "tx-1", Status: models.PaymentCompleted, Amount: 5000, Currency: "NGN"}}, nil
}

func (f *fakeStats) CountActiveByPlan(context.Context, time.Time) ([]repository.PlanCount, error) {
	return []repository.PlanCount{{Plan: models.PlanStarter, Count: 2}}, nil
}

func newTestService(stats *fakeStats, c *cache.Cache) *Service {
	return NewService(stats, stats, stats, stats, excel.NewExcelService(), c)
}

func TestDashboardAggregates(t *testing.T) {
	d, err := newTestService(&fakeStats{}, nil).Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, d.TotalUsers)
	assert.EqualValues(t, 10, d.ActiveUsers)
	assert.EqualValues(t, 4, d.SignupsLast30Days)
	assert.EqualValues(t, 30, d.TotalProjects)
	assert.Len(t, d.ProjectsByType, 2)
	assert.EqualValues(t, 25000, d.Payments.Revenue)
	assert.Equal(t, []repository.PlanCount{{Plan: models.PlanStarter, Count: 2}}, d.ActivePlans)
}

func TestDashboardFailsWhenAnyQueryFails(t *testing.T) {
	_, err := newTestService(&fakeStats{failUsers: true}, nil).Dashboard(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeInternal))
}

func TestDashboardIsCached(t *testing.T) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	defer m.Close()

	stats := &fakeStats{}
	s := newTestService(stats, cache.New(redis.NewClient(&redis.Options{Addr: m.Addr()})))
	for i := 0; i < 3; i++ {
		_, err := s.Dashboard(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&stats.userCalls))
}

func TestPaymentReport(t *testing.T) {
	data, name, err := newTestService(&fakeStats{}, nil).PaymentReport(context.Background(), repository.PaymentFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, name, "payments_report_")
}
