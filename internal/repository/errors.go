package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository-level sentinel errors.
var (
	ErrNotFound                 = errors.New("record not found")
	ErrDuplicateCode            = errors.New("record with this code already exists")
	ErrDuplicateUsername        = errors.New("user with this username already exists")
	ErrReferenced               = errors.New("record is referenced by other data")
	ErrInsufficientStock        = errors.New("insufficient available stock")
	ErrReturnExceedsOutstanding = errors.New("return quantity exceeds outstanding quantity")
	// ErrDuplicateIssueNo also matches ErrDuplicateCode.
	ErrDuplicateIssueNo = fmt.Errorf("%w: issue number", ErrDuplicateCode)
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool { return pgCode(err) == pgUniqueViolation }

func isForeignKeyViolation(err error) bool { return pgCode(err) == pgForeignKeyViolation }

// notFound maps pgx.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
