package profilerepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookex/model"
	"bookex/util/database"
)

type Repo interface {
	// Get returns nil, nil for an unknown user.
	Get(ctx context.Context, userID int64) (*model.Profile, error)
	// LockForUpdate reads the profile row with FOR UPDATE inside tx.
	LockForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (*model.Profile, error)
	Save(ctx context.Context, tx *sql.Tx, p *model.Profile) error
	// ListDue returns paid-tier users whose last deduction is on or before cutoff.
	ListDue(ctx context.Context, cutoff time.Time) ([]int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const selectProfile = `
	SELECT p.user_id, u.username, p.role, p.tier, p.balance, p.subscription_start, p.last_deduction_date
	FROM user_profiles p
	JOIN users u ON u.id = p.user_id
	WHERE p.user_id = $1`

func scanProfile(row *sql.Row) (*model.Profile, error) {
	var (
		p          model.Profile
		role, tier string
		start      sql.NullTime
		last       sql.NullTime
	)
	if err := row.Scan(&p.UserID, &p.Username, &role, &tier, &p.Balance, &start, &last); err != nil {
		return nil, err
	}
	p.Role = model.Role(role)
	p.Tier = model.Tier(tier)
	if start.Valid {
		t := start.Time
		p.SubscriptionStart = &t
	}
	if last.Valid {
		t := last.Time
		p.LastDeductionDate = &t
	}
	return &p, nil
}

func (r *repo) Get(ctx context.Context, userID int64) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, selectProfile, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repo) LockForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (*model.Profile, error) {
	p, err := scanProfile(database.Use(r.db, tx).QueryRowContext(ctx, selectProfile+` FOR UPDATE OF p`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repo) Save(ctx context.Context, tx *sql.Tx, p *model.Profile) error {
	const q = `
		UPDATE user_profiles
		SET role = $2,
			tier = $3,
			balance = $4,
			subscription_start = $5,
			last_deduction_date = $6
		WHERE user_id = $1`
	res, err := database.Use(r.db, tx).ExecContext(ctx, q,
		p.UserID, string(p.Role), string(p.Tier), p.Balance,
		nullDate(p.SubscriptionStart), nullDate(p.LastDeductionDate),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ListDue(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const q = `
		SELECT user_id
		FROM user_profiles
		WHERE tier <> 'Free'
		AND COALESCE(last_deduction_date, subscription_start, CURRENT_DATE) <= $1
		ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
