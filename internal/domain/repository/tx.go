package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner executes a function inside a single atomic unit. The Postgres
// implementation opens a real transaction; the in-memory implementation
// serializes callers under a lock and passes a nil tx. Repository methods
// that accept a *sql.Tx treat nil as "execute directly".
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlTxRunner.InTx begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlTxRunner.InTx commit: %w", err)
	}
	return nil
}
