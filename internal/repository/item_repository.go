package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// ItemRepository handles tracked tool data access.
type ItemRepository interface {
	List(ctx context.Context, f model.ListFilter) ([]model.Item, int, error)
	All(ctx context.Context) ([]model.Item, error)
	GetByID(ctx context.Context, id int) (*model.Item, error)
	Create(ctx context.Context, it *model.Item) error
	Update(ctx context.Context, it *model.Item) error
	UpsertByCode(ctx context.Context, it *model.Item) (created bool, err error)
	Delete(ctx context.Context, id int) error
}

type itemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &itemRepository{pool: pool}
}

const pgCheckViolation = "23514"

const itemSelect = `SELECT i.id, i.code, i.name, i.category_id, COALESCE(c.name, ''), i.unit,
	i.total_quantity, i.available_quantity, i.description, i.is_active, i.created_at, i.updated_at
	FROM items i LEFT JOIN item_categories c ON c.id = i.category_id`

func scanItem(row pgx.Row) (*model.Item, error) {
	it := &model.Item{}
	err := row.Scan(&it.ID, &it.Code, &it.Name, &it.CategoryID, &it.CategoryName, &it.Unit,
		&it.TotalQuantity, &it.AvailableQuantity, &it.Description, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return it, nil
}

func mapItemWriteErr(err error) error {
	switch pgCode(err) {
	case pgUniqueViolation:
		return ErrDuplicateCode
	case pgCheckViolation:
		// Lowering total below what is currently issued out.
		return ErrInsufficientStock
	case pgForeignKeyViolation:
		return ErrNotFound
	}
	return notFound(err)
}

// List returns a page of items plus the total count.
func (r *itemRepository) List(ctx context.Context, f model.ListFilter) ([]model.Item, int, error) {
	pattern := "%" + f.Search + "%"

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM items WHERE code ILIKE $1 OR name ILIKE $1`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		itemSelect+` WHERE i.code ILIKE $1 OR i.name ILIKE $1 ORDER BY i.name ASC LIMIT $2 OFFSET $3`,
		pattern, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *it)
	}
	return items, total, rows.Err()
}

// All returns every item ordered by code, for exports.
func (r *itemRepository) All(ctx context.Context) ([]model.Item, error) {
	rows, err := r.pool.Query(ctx, itemSelect+` ORDER BY i.code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// GetByID retrieves an item by ID.
func (r *itemRepository) GetByID(ctx context.Context, id int) (*model.Item, error) {
	return scanItem(r.pool.QueryRow(ctx, itemSelect+` WHERE i.id = $1`, id))
}

// Create inserts a new item with its whole stock available.
func (r *itemRepository) Create(ctx context.Context, it *model.Item) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (code, name, category_id, unit, total_quantity, available_quantity, description, is_active)
		 VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		 RETURNING id, available_quantity, created_at, updated_at`,
		it.Code, it.Name, it.CategoryID, it.Unit, it.TotalQuantity, it.Description, it.IsActive,
	).Scan(&it.ID, &it.AvailableQuantity, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return mapItemWriteErr(err)
	}
	return nil
}

// Update modifies an item. A change of total quantity shifts the available
// quantity by the same delta.
func (r *itemRepository) Update(ctx context.Context, it *model.Item) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE items SET code = $1, name = $2, category_id = $3, unit = $4,
			available_quantity = available_quantity + ($5 - total_quantity),
			total_quantity = $5, description = $6, is_active = $7, updated_at = NOW()
		 WHERE id = $8
		 RETURNING available_quantity, created_at, updated_at`,
		it.Code, it.Name, it.CategoryID, it.Unit, it.TotalQuantity, it.Description, it.IsActive, it.ID,
	).Scan(&it.AvailableQuantity, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return mapItemWriteErr(err)
	}
	return nil
}

// UpsertByCode inserts it or updates the row sharing its code.
func (r *itemRepository) UpsertByCode(ctx context.Context, it *model.Item) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (code, name, category_id, unit, total_quantity, available_quantity, description, is_active)
		 VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, category_id = EXCLUDED.category_id,
			unit = EXCLUDED.unit,
			available_quantity = items.available_quantity + (EXCLUDED.total_quantity - items.total_quantity),
			total_quantity = EXCLUDED.total_quantity, description = EXCLUDED.description,
			is_active = EXCLUDED.is_active, updated_at = NOW()
		 RETURNING id, available_quantity, created_at, updated_at, (xmax = 0)`,
		it.Code, it.Name, it.CategoryID, it.Unit, it.TotalQuantity, it.Description, it.IsActive,
	).Scan(&it.ID, &it.AvailableQuantity, &it.CreatedAt, &it.UpdatedAt, &created)
	if err != nil {
		return false, mapItemWriteErr(err)
	}
	return created, nil
}

// Delete removes an item that was never issued.
func (r *itemRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
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
