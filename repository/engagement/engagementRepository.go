package engagementrepo

import (
	"context"
	"database/sql"
	"errors"

	"bookex/model"
)

type Repo interface {
	UpsertRating(ctx context.Context, userID, bookID int64, rating int) error

	InsertComment(ctx context.Context, c *model.Comment) error
	// CommentByID returns nil, nil when the comment does not exist.
	CommentByID(ctx context.Context, id int64) (*model.Comment, error)
	UpdateComment(ctx context.Context, id int64, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
	ListComments(ctx context.Context, bookID int64) ([]model.Comment, error)

	// ToggleFavorite adds the favorite if absent and removes it otherwise.
	// It reports whether the book is a favorite afterwards.
	ToggleFavorite(ctx context.Context, userID, bookID int64) (bool, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) UpsertRating(ctx context.Context, userID, bookID int64, rating int) error {
	const q = `
		INSERT INTO ratings (user_id, book_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, q, userID, bookID, rating)
	return err
}

func (r *repo) InsertComment(ctx context.Context, c *model.Comment) error {
	const q = `
		INSERT INTO comments (book_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q, c.BookID, c.UserID, c.Content).Scan(&c.ID, &c.CreatedAt)
}

const selectComment = `
		SELECT c.id, c.book_id, c.user_id, u.username, c.content, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.user_id`

type scanner interface{ Scan(dest ...any) error }

func scanComment(s scanner) (*model.Comment, error) {
	var (
		c       model.Comment
		updated sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.BookID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt, &updated); err != nil {
		return nil, err
	}
	if updated.Valid {
		t := updated.Time
		c.UpdatedAt = &t
	}
	return &c, nil
}

func (r *repo) CommentByID(ctx context.Context, id int64) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, selectComment+`
		WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *repo) UpdateComment(ctx context.Context, id int64, content string) (*model.Comment, error) {
	const q = `UPDATE comments SET content = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, content)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sql.ErrNoRows
	}
	return r.CommentByID(ctx, id)
}

func (r *repo) DeleteComment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ListComments(ctx context.Context, bookID int64) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, selectComment+`
		WHERE c.book_id = $1
		ORDER BY c.created_at, c.id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repo) ToggleFavorite(ctx context.Context, userID, bookID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	const q = `
		INSERT INTO favorites (user_id, book_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, q, userID, bookID); err != nil {
		return false, err
	}
	return true, nil
}
