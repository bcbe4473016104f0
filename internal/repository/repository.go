package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so repository
// methods can run either standalone or inside a caller-owned transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor runs a function inside a database transaction. The service layer
// depends on this rather than on TxRunner so tests can substitute a stub.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// Compile-time check to ensure TxRunner satisfies Transactor.
var _ Transactor = (*TxRunner)(nil)

// TxRunner provides a unified way to run a function inside a transaction.
type TxRunner struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewTxRunner creates a new transaction runner.
func NewTxRunner(db *pgxpool.Pool, logger *zap.Logger) *TxRunner {
	return &TxRunner{
		db:     db,
		logger: logger.Named("TxRunner"),
	}
}

// WithTransaction executes fn in a transaction with automatic rollback on
// error or panic. Nothing fn writes becomes visible unless the commit
// succeeds, so a caller never observes an outcome without its state change.
func (r *TxRunner) WithTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx DBTX) error,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				r.logger.Error("Failed to rollback transaction after panic",
					zap.Error(rollbackErr),
					zap.Any("panic", p))
			}
			panic(p) // re-throw panic after rollback
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			r.logger.Error("Failed to rollback transaction",
				zap.Error(rollbackErr),
				zap.NamedError("original_error", err))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
