package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tooltrack-backend/internal/database"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// IssueRepository handles outward issues and inward returns. Stock counters
// on items move in the same transaction as the movement rows.
type IssueRepository interface {
	Create(ctx context.Context, is *model.Issue) error
	GetByID(ctx context.Context, id int) (*model.Issue, error)
	List(ctx context.Context, f model.IssueFilter) ([]model.Issue, int, error)
	CreateReturn(ctx context.Context, ret *model.ReturnRecord) (*model.Issue, error)
	ListReturns(ctx context.Context, f model.IssueFilter) ([]model.ReturnRecord, int, error)
	ListOverdue(ctx context.Context, now time.Time, afterID, limit int) ([]model.Issue, error)
	LastIssueSeq(ctx context.Context, prefix string) (int, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueSelect = `SELECT s.id, s.issue_no, s.item_id, it.code, it.name, s.division_id, d.name,
	s.contractor_id, s.machine_id, s.location_id, s.quantity, s.returned_quantity, s.state,
	s.issued_by, s.issued_at, s.expected_return_at, s.remarks
	FROM issues s
	JOIN items it ON it.id = s.item_id
	JOIN divisions d ON d.id = s.division_id`

func scanIssue(row pgx.Row) (*model.Issue, error) {
	is := &model.Issue{}
	err := row.Scan(&is.ID, &is.IssueNo, &is.ItemID, &is.ItemCode, &is.ItemName, &is.DivisionID, &is.DivisionName,
		&is.ContractorID, &is.MachineID, &is.LocationID, &is.Quantity, &is.ReturnedQuantity, &is.State,
		&is.IssuedBy, &is.IssuedAt, &is.ExpectedReturnAt, &is.Remarks)
	if err != nil {
		return nil, notFound(err)
	}
	return is, nil
}

// Create reserves stock and records the issue.
func (r *issueRepository) Create(ctx context.Context, is *model.Issue) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var available int
		err := tx.QueryRow(ctx,
			`SELECT available_quantity FROM items WHERE id = $1 AND is_active FOR UPDATE`, is.ItemID,
		).Scan(&available)
		if err != nil {
			return notFound(err)
		}
		if available < is.Quantity {
			return ErrInsufficientStock
		}

		if _, err := tx.Exec(ctx,
			`UPDATE items SET available_quantity = available_quantity - $1, updated_at = NOW() WHERE id = $2`,
			is.Quantity, is.ItemID,
		); err != nil {
			return err
		}

		is.State = model.IssueStateIssued
		err = tx.QueryRow(ctx,
			`INSERT INTO issues (issue_no, item_id, division_id, contractor_id, machine_id, location_id,
				quantity, state, issued_by, expected_return_at, remarks)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id, issued_at`,
			is.IssueNo, is.ItemID, is.DivisionID, is.ContractorID, is.MachineID, is.LocationID,
			is.Quantity, is.State, is.IssuedBy, is.ExpectedReturnAt, is.Remarks,
		).Scan(&is.ID, &is.IssuedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			if isUniqueViolation(err) {
				return ErrDuplicateIssueNo
			}
			return err
		}
		return nil
	})
}

// LastIssueSeq returns the highest sequence number stored under prefix
// (e.g. "ISS-20260314-"), or 0 when there is none.
func (r *issueRepository) LastIssueSeq(ctx context.Context, prefix string) (int, error) {
	var seq int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(CAST(substring(issue_no FROM char_length($1) + 1) AS INTEGER)), 0)
		 FROM issues WHERE issue_no LIKE $1 || '%'`,
		prefix,
	).Scan(&seq)
	return seq, err
}

// GetByID retrieves an issue by ID.
func (r *issueRepository) GetByID(ctx context.Context, id int) (*model.Issue, error) {
	return scanIssue(r.pool.QueryRow(ctx, issueSelect+` WHERE s.id = $1`, id))
}

// issueWhere builds the WHERE clause shared by issue and return listings.
// timeCol is the column the date range applies to.
func issueWhere(f model.IssueFilter, timeCol string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.State != "" {
		add("s.state = $%d", f.State)
	}
	if f.DivisionID != nil {
		add("s.division_id = $%d", *f.DivisionID)
	}
	if f.ItemID != nil {
		add("s.item_id = $%d", *f.ItemID)
	}
	if f.From != nil {
		add(timeCol+" >= $%d", *f.From)
	}
	if f.To != nil {
		add(timeCol+" < $%d", *f.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns a page of issues matching f. A zero Limit returns every row.
func (r *issueRepository) List(ctx context.Context, f model.IssueFilter) ([]model.Issue, int, error) {
	where, args := issueWhere(f, "s.issued_at")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues s`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := issueSelect + where + ` ORDER BY s.issued_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	issues := []model.Issue{}
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		issues = append(issues, *is)
	}
	return issues, total, rows.Err()
}

// CreateReturn records tools coming back against an issue and returns the
// updated issue.
func (r *issueRepository) CreateReturn(ctx context.Context, ret *model.ReturnRecord) (*model.Issue, error) {
	var updated *model.Issue
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			itemID, qty, returned int
			issueNo               string
		)
		err := tx.QueryRow(ctx,
			`SELECT item_id, quantity, returned_quantity, issue_no FROM issues WHERE id = $1 FOR UPDATE`, ret.IssueID,
		).Scan(&itemID, &qty, &returned, &issueNo)
		if err != nil {
			return notFound(err)
		}
		if ret.Quantity > qty-returned {
			return ErrReturnExceedsOutstanding
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO issue_returns (issue_id, quantity, status_id, received_by, remarks)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id, returned_at`,
			ret.IssueID, ret.Quantity, ret.StatusID, ret.ReceivedBy, ret.Remarks,
		).Scan(&ret.ID, &ret.ReturnedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return err
		}
		ret.IssueNo = issueNo

		state := model.IssueStatePartial
		if returned+ret.Quantity == qty {
			state = model.IssueStateReturned
		}
		if _, err := tx.Exec(ctx,
			`UPDATE issues SET returned_quantity = returned_quantity + $1, state = $2 WHERE id = $3`,
			ret.Quantity, state, ret.IssueID,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE items SET available_quantity = available_quantity + $1, updated_at = NOW() WHERE id = $2`,
			ret.Quantity, itemID,
		); err != nil {
			return err
		}

		updated, err = scanIssue(tx.QueryRow(ctx, issueSelect+` WHERE s.id = $1`, ret.IssueID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListReturns returns a page of returns whose parent issue matches f.
func (r *issueRepository) ListReturns(ctx context.Context, f model.IssueFilter) ([]model.ReturnRecord, int, error) {
	f.State = ""
	where, args := issueWhere(f, "rt.returned_at")
	from := ` FROM issue_returns rt JOIN issues s ON s.id = rt.issue_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT rt.id, rt.issue_id, s.issue_no, rt.quantity, rt.status_id, rt.received_by, rt.returned_at, rt.remarks` +
		from + where + ` ORDER BY rt.returned_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	returns := []model.ReturnRecord{}
	for rows.Next() {
		var rt model.ReturnRecord
		if err := rows.Scan(&rt.ID, &rt.IssueID, &rt.IssueNo, &rt.Quantity, &rt.StatusID, &rt.ReceivedBy, &rt.ReturnedAt, &rt.Remarks); err != nil {
			return nil, 0, err
		}
		returns = append(returns, rt)
	}
	return returns, total, rows.Err()
}

// ListOverdue returns up to limit open issues whose expected return date is
// before now and whose id is greater than afterID, in id order. Pass the last
// id of one page as afterID to get the next.
func (r *issueRepository) ListOverdue(ctx context.Context, now time.Time, afterID, limit int) ([]model.Issue, error) {
	rows, err := r.pool.Query(ctx,
		issueSelect+` WHERE s.state <> $1 AND s.expected_return_at IS NOT NULL AND s.expected_return_at < $2
		 AND s.id > $3
		 ORDER BY s.id LIMIT $4`,
		model.IssueStateReturned, now, afterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	issues := []model.Issue{}
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *is)
	}
	return issues, rows.Err()
}
