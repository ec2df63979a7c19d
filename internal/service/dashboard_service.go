package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
)

const recentIssuesLimit = 5

// DashboardService handles dashboard aggregation.
type DashboardService struct {
	repo repository.DashboardRepository
	now  func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo, now: time.Now}
}

// Summary runs the dashboard queries concurrently and merges the results.
func (s *DashboardService) Summary(ctx context.Context) (*model.DashboardSummary, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var sum model.DashboardSummary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		sum.TotalItems, sum.AvailableStock, err = s.repo.StockTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.OpenIssues, err = s.repo.CountOpenIssues(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.OverdueIssues, err = s.repo.CountOverdueIssues(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		sum.IssuedToday, err = s.repo.CountIssuedSince(gctx, startOfDay)
		return err
	})
	g.Go(func() (err error) {
		sum.ReturnedToday, err = s.repo.CountReturnedSince(gctx, startOfDay)
		return err
	})
	g.Go(func() (err error) {
		sum.RecentIssues, err = s.repo.RecentIssues(gctx, recentIssuesLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if sum.RecentIssues == nil {
		sum.RecentIssues = []model.Issue{}
	}
	return &sum, nil
}
