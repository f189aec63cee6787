package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxStarter begins transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxFunc runs inside a transaction.
type TxFunc func(pgx.Tx) error

// WithTransaction begins a transaction on db, runs fn and commits.
// The transaction is rolled back when fn returns an error or panics.
func WithTransaction(ctx context.Context, db TxStarter, fn TxFunc) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// WithTransactionResult is WithTransaction for functions returning a value.
func WithTransactionResult[T any](ctx context.Context, db TxStarter, fn func(pgx.Tx) (T, error)) (T, error) {
	var result T

	err := WithTransaction(ctx, db, func(tx pgx.Tx) error {
		var fnErr error
		result, fnErr = fn(tx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
