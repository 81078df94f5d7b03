package auth

import (
	"context"
	"database/sql"
	"errors"

	"bookex/model"
	"bookex/util/database"
)

type Repo interface {
	Create(ctx context.Context, tx *sql.Tx, u *model.User) error
	CreateProfile(ctx context.Context, tx *sql.Tx, userID int64, role model.Role) error
	// ByEmail returns nil, nil when no user matches.
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, tx *sql.Tx, u *model.User) error {
	return database.Use(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO users(first_name, last_name, email, username, password_hash)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
}

func (r *repo) CreateProfile(ctx context.Context, tx *sql.Tx, userID int64, role model.Role) error {
	_, err := database.Use(r.db, tx).ExecContext(ctx, `
		INSERT INTO user_profiles(user_id, role, tier, balance)
		VALUES ($1, $2, 'Free', 0)`,
		userID, string(role),
	)
	return err
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	var (
		u    = &model.User{}
		role string
	)
	err := r.db.QueryRowContext(ctx, `
        SELECT u.id, u.first_name, u.last_name, u.email, u.username, u.password_hash,
               COALESCE(p.role, 'Regular'), u.created_at
        FROM users u
        LEFT JOIN user_profiles p ON p.user_id = u.id
        WHERE lower(u.email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return u, nil
}
