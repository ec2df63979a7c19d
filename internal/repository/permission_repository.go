package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// PermissionRepository handles per-role permission set storage.
type PermissionRepository interface {
	GetByRole(ctx context.Context, role model.Role) (*model.PermissionSet, error)
	List(ctx context.Context) ([]model.PermissionSet, error)
	ReplaceAll(ctx context.Context, sets []model.PermissionSet) error
}

type permissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository creates a new PermissionRepository.
func NewPermissionRepository(pool *pgxpool.Pool) PermissionRepository {
	return &permissionRepository{pool: pool}
}

const permissionColumns = `role, view_dashboard, view_master, view_company_master, view_location_master,
	view_contractor_master, view_machine_master, view_item_category_master, view_item_master,
	view_status_master, view_outward, view_inward, view_reports, access_settings, updated_at`

func scanPermissionSet(row pgx.Row) (*model.PermissionSet, error) {
	p := &model.PermissionSet{}
	err := row.Scan(
		&p.Role, &p.ViewDashboard, &p.ViewMaster, &p.ViewCompanyMaster, &p.ViewLocationMaster,
		&p.ViewContractorMaster, &p.ViewMachineMaster, &p.ViewItemCategoryMaster, &p.ViewItemMaster,
		&p.ViewStatusMaster, &p.ViewOutward, &p.ViewInward, &p.ViewReports, &p.AccessSettings, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByRole returns the stored set for role, or ErrNotFound when none is configured.
func (r *permissionRepository) GetByRole(ctx context.Context, role model.Role) (*model.PermissionSet, error) {
	p, err := scanPermissionSet(r.pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM role_permissions WHERE role = $1`, role))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// List returns every stored permission set ordered by role.
func (r *permissionRepository) List(ctx context.Context) ([]model.PermissionSet, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM role_permissions ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := []model.PermissionSet{}
	for rows.Next() {
		p, err := scanPermissionSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *p)
	}
	return sets, rows.Err()
}

// ReplaceAll upserts every given set in a single transaction.
func (r *permissionRepository) ReplaceAll(ctx context.Context, sets []model.PermissionSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, p := range sets {
		batch.Queue(
			`INSERT INTO role_permissions (role, view_dashboard, view_master, view_company_master, view_location_master,
				view_contractor_master, view_machine_master, view_item_category_master, view_item_master,
				view_status_master, view_outward, view_inward, view_reports, access_settings, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
			 ON CONFLICT (role) DO UPDATE SET
				view_dashboard = EXCLUDED.view_dashboard,
				view_master = EXCLUDED.view_master,
				view_company_master = EXCLUDED.view_company_master,
				view_location_master = EXCLUDED.view_location_master,
				view_contractor_master = EXCLUDED.view_contractor_master,
				view_machine_master = EXCLUDED.view_machine_master,
				view_item_category_master = EXCLUDED.view_item_category_master,
				view_item_master = EXCLUDED.view_item_master,
				view_status_master = EXCLUDED.view_status_master,
				view_outward = EXCLUDED.view_outward,
				view_inward = EXCLUDED.view_inward,
				view_reports = EXCLUDED.view_reports,
				access_settings = EXCLUDED.access_settings,
				updated_at = NOW()`,
			p.Role, p.ViewDashboard, p.ViewMaster, p.ViewCompanyMaster, p.ViewLocationMaster,
			p.ViewContractorMaster, p.ViewMachineMaster, p.ViewItemCategoryMaster, p.ViewItemMaster,
			p.ViewStatusMaster, p.ViewOutward, p.ViewInward, p.ViewReports, p.AccessSettings,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert permissions: %w", err)
	}

	return tx.Commit(ctx)
}
