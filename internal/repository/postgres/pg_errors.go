package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirinyoku/hallbook/internal/repository"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeExclusionViolation  = "23P01"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"

	overlapConstraint = "prevent_hall_overlap"
)

// IsRetryable reports whether err is a serialization failure or deadlock.
// The caller decides whether to retry; the store never does.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerialization, codeDeadlock:
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	if IsRetryable(err) {
		return fmt.Errorf("%w: %v", repository.ErrTxAborted, err)
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case codeExclusionViolation:
			if pge.ConstraintName == "" || pge.ConstraintName == overlapConstraint {
				return fmt.Errorf("%w: %s", repository.ErrOverlap, pge.Detail)
			}
			return repository.ErrConflict
		case codeUniqueViolation:
			return repository.ErrConflict
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", repository.ErrReference, pge.ConstraintName)
		}
	}

	return err
}

// wrapDBErr maps common DB errors to repository-level errors and wraps them with
// the provided operation name.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}
