package admin

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/cache"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

const (
	dashboardCacheKey = "bizdoc:admin:dashboard"
	dashboardCacheTTL = 30 * time.Second
	recentWindow      = 30 * 24 * time.Hour
)

type UserStats interface {
	CountUsers(ctx context.Context) (total, active int64, err error)
	CountSignupsSince(ctx context.Context, since time.Time) (int64, error)
}

type ProjectStats interface {
	Count(ctx context.Context) (int64, error)
	CountByType(ctx context.Context) ([]repository.TypeCount, error)
}

type PaymentStore interface {
	Stats(ctx context.Context) (repository.PaymentStats, error)
	List(ctx context.Context, filter repository.PaymentFilter, page, pageSize int) ([]models.Payment, int64, error)
	ListForReport(ctx context.Context, filter repository.PaymentFilter) ([]models.Payment, error)
}

type SubscriptionStats interface {
	CountActiveByPlan(ctx context.Context, now time.Time) ([]repository.PlanCount, error)
}

// ReportWriter renders payments as a spreadsheet
type ReportWriter interface {
	PaymentReport(payments []models.Payment) ([]byte, error)
	ReportFilename() string
}

// Dashboard is the aggregate shown on the admin home page
type Dashboard struct {
	TotalUsers        int64                   `json:"total_users"`
	ActiveUsers       int64                   `json:"active_users"`
	SignupsLast30Days int64                   `json:"signups_last_30_days"`
	TotalProjects     int64                   `json:"total_projects"`
	ProjectsByType    []repository.TypeCount  `json:"projects_by_type"`
	Payments          repository.PaymentStats `json:"payments"`
	ActivePlans       []repository.PlanCount  `json:"active_plans"`
	GeneratedAt       time.Time               `json:"generated_at"`
}

type Service struct {
	users    UserStats
	projects ProjectStats
	payments PaymentStore
	subs     SubscriptionStats
	reports  ReportWriter
	cache    *cache.Cache
	now      func() time.Time
}

func NewService(users UserStats, projects ProjectStats, payments PaymentStore, subs SubscriptionStats, reports ReportWriter, c *cache.Cache) *Service {
	if c == nil {
		c = cache.New(nil)
	}
	return &Service{
		users:    users,
		projects: projects,
		payments: payments,
		subs:     subs,
		reports:  reports,
		cache:    c,
		now:      time.Now,
	}
}

// Dashboard returns the aggregate stats, cached briefly so a busy admin
// page does not rerun every count
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	err := s.cache.GetOrLoad(ctx, dashboardCacheKey, dashboardCacheTTL, &d, func(ctx context.Context) (interface{}, error) {
		return s.computeDashboard(ctx)
	})
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to load dashboard: %w", err))
	}
	return &d, nil
}

// computeDashboard runs every aggregate query concurrently
func (s *Service) computeDashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	d := &Dashboard{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.TotalUsers, d.ActiveUsers, err = s.users.CountUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.SignupsLast30Days, err = s.users.CountSignupsSince(gctx, now.Add(-recentWindow))
		return err
	})
	g.Go(func() error {
		var err error
		d.TotalProjects, err = s.projects.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.ProjectsByType, err = s.projects.CountByType(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.Payments, err = s.payments.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.ActivePlans, err = s.subs.CountActiveByPlan(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// ListPayments pages through payments for the admin table
func (s *Service) ListPayments(ctx context.Context, filter repository.PaymentFilter, page, pageSize int) ([]models.Payment, int64, error) {
	payments, total, err := s.payments.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return payments, total, nil
}

// PaymentReport builds the XLSX report for filter and its filename
func (s *Service) PaymentReport(ctx context.Context, filter repository.PaymentFilter) ([]byte, string, error) {
	payments, err := s.payments.ListForReport(ctx, filter)
	if err != nil {
		return nil, "", apperror.Internal(err)
	}
	data, err := s.reports.PaymentReport(payments)
	if err != nil {
		return nil, "", apperror.Assembly(err)
	}
	return data, s.reports.ReportFilename(), nil
}
