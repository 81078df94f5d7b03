package database

import (
	"context"
	"database/sql"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type txRunner struct{ db *sql.DB }

func NewTransactor(db *sql.DB) Transactor { return &txRunner{db: db} }

// WithinTx commits when fn returns nil and rolls back otherwise, so callers
// never leave a partially applied change behind.
func (r *txRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}
