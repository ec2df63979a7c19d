package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// MasterRepository serves every code/name lookup table. Table names come
// from model.MasterEntityInfo and are never taken from request input.
type MasterRepository interface {
	List(ctx context.Context, info model.MasterEntityInfo, f model.ListFilter) ([]model.MasterRecord, int, error)
	All(ctx context.Context, info model.MasterEntityInfo) ([]model.MasterRecord, error)
	GetByID(ctx context.Context, info model.MasterEntityInfo, id int) (*model.MasterRecord, error)
	GetByCode(ctx context.Context, info model.MasterEntityInfo, code string) (*model.MasterRecord, error)
	Create(ctx context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) error
	Update(ctx context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) error
	UpsertByCode(ctx context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) (created bool, err error)
	Delete(ctx context.Context, info model.MasterEntityInfo, id int) error
}

type masterRepository struct {
	pool *pgxpool.Pool
}

// NewMasterRepository creates a new MasterRepository.
func NewMasterRepository(pool *pgxpool.Pool) MasterRepository {
	return &masterRepository{pool: pool}
}

const masterColumns = `id, code, name, description, is_active, created_at, updated_at`

func scanMaster(row pgx.Row) (*model.MasterRecord, error) {
	m := &model.MasterRecord{}
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Description, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *masterRepository) List(ctx context.Context, info model.MasterEntityInfo, f model.ListFilter) ([]model.MasterRecord, int, error) {
	pattern := "%" + f.Search + "%"

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE code ILIKE $1 OR name ILIKE $1`, info.Table)
	if err := r.pool.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE code ILIKE $1 OR name ILIKE $1 ORDER BY name ASC LIMIT $2 OFFSET $3`,
		masterColumns, info.Table)
	rows, err := r.pool.Query(ctx, query, pattern, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []model.MasterRecord{}
	for rows.Next() {
		m, err := scanMaster(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *m)
	}
	return records, total, rows.Err()
}

func (r *masterRepository) All(ctx context.Context, info model.MasterEntityInfo) ([]model.MasterRecord, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY code ASC`, masterColumns, info.Table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.MasterRecord{}
	for rows.Next() {
		m, err := scanMaster(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *m)
	}
	return records, rows.Err()
}

func (r *masterRepository) GetByID(ctx context.Context, info model.MasterEntityInfo, id int) (*model.MasterRecord, error) {
	return scanMaster(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, masterColumns, info.Table), id))
}

func (r *masterRepository) GetByCode(ctx context.Context, info model.MasterEntityInfo, code string) (*model.MasterRecord, error) {
	return scanMaster(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE code = $1`, masterColumns, info.Table), code))
}

func (r *masterRepository) Create(ctx context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) error {
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (code, name, description, is_active) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`, info.Table),
		rec.Code, rec.Name, rec.Description, rec.IsActive,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *masterRepository) Update(ctx context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) error {
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET code = $1, name = $2, description = $3, is_active = $4, updated_at = NOW()
		 WHERE id = $5 RETURNING created_at, updated_at`, info.Table),
		rec.Code, rec.Name, rec.Description, rec.IsActive, rec.ID,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return notFound(err)
	}
	return nil
}

// UpsertByCode inserts rec or updates the row sharing its code.
// xmax = 0 only holds for freshly inserted tuples.
func (r *masterRepository) UpsertByCode(ctx context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (code, name, description, is_active) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			is_active = EXCLUDED.is_active, updated_at = NOW()
		 RETURNING id, created_at, updated_at, (xmax = 0)`, info.Table),
		rec.Code, rec.Name, rec.Description, rec.IsActive,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &created)
	return created, err
}

func (r *masterRepository) Delete(ctx context.Context, info model.MasterEntityInfo, id int) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, info.Table), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
