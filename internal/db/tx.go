package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeExclusionViolation  = "23P01"
	codeSerialization       = "40001"
)

// WithTx runs fn in a read-committed transaction, committing when fn returns nil.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsUniqueViolation reports a unique violation, optionally on a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == codeUniqueViolation && (constraint == "" || name == constraint)
}

func IsForeignKeyViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == codeForeignKeyViolation && (constraint == "" || name == constraint)
}

func IsExclusionViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == codeExclusionViolation && (constraint == "" || name == constraint)
}

func IsSerializationFailure(err error) bool {
	code, _ := pgCode(err)
	return code == codeSerialization
}
