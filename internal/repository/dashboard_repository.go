package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// DashboardRepository handles dashboard aggregate queries.
type DashboardRepository interface {
	StockTotals(ctx context.Context) (totalItems, availableStock int, err error)
	CountOpenIssues(ctx context.Context) (int, error)
	CountOverdueIssues(ctx context.Context, now time.Time) (int, error)
	CountIssuedSince(ctx context.Context, since time.Time) (int, error)
	CountReturnedSince(ctx context.Context, since time.Time) (int, error)
	RecentIssues(ctx context.Context, limit int) ([]model.Issue, error)
}

type dashboardRepository struct {
	pool   *pgxpool.Pool
	issues IssueRepository
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepository{pool: pool, issues: NewIssueRepository(pool)}
}

// StockTotals returns the number of active items and their summed available stock.
func (r *dashboardRepository) StockTotals(ctx context.Context) (totalItems, availableStock int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(available_quantity), 0) FROM items WHERE is_active`,
	).Scan(&totalItems, &availableStock)
	return
}

// CountOpenIssues counts issues with tools still out.
func (r *dashboardRepository) CountOpenIssues(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM issues WHERE state <> $1`, model.IssueStateReturned,
	).Scan(&n)
	return n, err
}

// CountOverdueIssues counts open issues past their expected return date.
func (r *dashboardRepository) CountOverdueIssues(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM issues WHERE state <> $1 AND expected_return_at IS NOT NULL AND expected_return_at < $2`,
		model.IssueStateReturned, now,
	).Scan(&n)
	return n, err
}

// CountIssuedSince counts issues created at or after since.
func (r *dashboardRepository) CountIssuedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues WHERE issued_at >= $1`, since).Scan(&n)
	return n, err
}

// CountReturnedSince counts return records created at or after since.
func (r *dashboardRepository) CountReturnedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issue_returns WHERE returned_at >= $1`, since).Scan(&n)
	return n, err
}

// RecentIssues returns the latest N issues.
func (r *dashboardRepository) RecentIssues(ctx context.Context, limit int) ([]model.Issue, error) {
	issues, _, err := r.issues.List(ctx, model.IssueFilter{Limit: limit})
	return issues, err
}
