package walletrepo

import (
	"context"
	"database/sql"

	"bookex/model"
	"bookex/util/database"
)

type Repo interface {
	InsertLedger(ctx context.Context, tx *sql.Tx, e *model.LedgerEntry) error
	ListLedger(ctx context.Context, userID int64) ([]model.LedgerEntry, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) InsertLedger(ctx context.Context, tx *sql.Tx, e *model.LedgerEntry) error {
	const q = `
INSERT INTO wallet_ledger (user_id, entry_type, tier, amount, balance_after)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, created_at`
	return database.Use(r.db, tx).QueryRowContext(ctx, q,
		e.UserID, string(e.EntryType), string(e.Tier), e.Amount, e.BalanceAfter,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *repo) ListLedger(ctx context.Context, userID int64) ([]model.LedgerEntry, error) {
	const q = `
SELECT id, user_id, entry_type, tier, amount, balance_after, created_at
FROM wallet_ledger
WHERE user_id=$1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var (
			l         model.LedgerEntry
			typ, tier string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &typ, &tier, &l.Amount, &l.BalanceAfter, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.EntryType = model.LedgerType(typ)
		l.Tier = model.Tier(tier)
		out = append(out, l)
	}
	return out, rows.Err()
}
