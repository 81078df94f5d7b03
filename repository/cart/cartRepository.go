package cartrepo

import (
	"context"
	"database/sql"
	"errors"

	"bookex/model"
	"bookex/util/database"
)

type Repo interface {
	// Open cart
	BookExists(ctx context.Context, bookID int64) (bool, error)
	// AddLine returns sql.ErrNoRows when the open line already holds maxQty.
	AddLine(ctx context.Context, userID, bookID int64, maxQty int) (*model.CartLine, error)
	ListOpen(ctx context.Context, userID int64) ([]model.CartLine, error)
	// LineOwner returns the owning user and checked-out flag, sql.ErrNoRows when absent.
	LineOwner(ctx context.Context, lineID int64) (ownerID int64, checkedOut bool, err error)
	SetQuantity(ctx context.Context, lineID int64, qty int) error
	DeleteLine(ctx context.Context, lineID int64) error

	// Checkout
	LockOpenLines(ctx context.Context, tx *sql.Tx, userID int64) ([]model.CartLine, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, bookID int64, qty int) (bool, error)
	// MarkCheckedOut flips only the given lines, the ones whose stock was taken.
	MarkCheckedOut(ctx context.Context, tx *sql.Tx, lineIDs []int64) (int64, error)

	// Returns
	LockBook(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error)
	NetPurchased(ctx context.Context, tx *sql.Tx, userID, bookID int64) (int, error)
	IncrementStock(ctx context.Context, tx *sql.Tx, bookID int64, qty int) error
	InsertReturn(ctx context.Context, tx *sql.Tx, rec *model.ReturnRecord) error
	ListReturns(ctx context.Context, userID int64) ([]model.ReturnRecord, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

// Open cart

func (r *repo) BookExists(ctx context.Context, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, bookID).Scan(&ok)
	return ok, err
}

// AddLine inserts a line with quantity 1, or bumps the existing open line for
// the same book while it is below maxQty.
func (r *repo) AddLine(ctx context.Context, userID, bookID int64, maxQty int) (*model.CartLine, error) {
	const q = `
		INSERT INTO cart_lines (user_id, book_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, book_id) WHERE NOT checked_out
		DO UPDATE SET quantity = cart_lines.quantity + 1
		WHERE cart_lines.quantity < $3
		RETURNING id, quantity, created_at`
	l := model.CartLine{UserID: userID, BookID: bookID}
	if err := r.db.QueryRowContext(ctx, q, userID, bookID, maxQty).Scan(&l.ID, &l.Quantity, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

const selectLines = `
		SELECT c.id, c.user_id, c.book_id, b.name, b.price, c.quantity, c.checked_out, c.created_at
		FROM cart_lines c
		JOIN books b ON b.id = c.book_id
		WHERE c.user_id = $1
		AND NOT c.checked_out
		ORDER BY c.book_id`

func (r *repo) ListOpen(ctx context.Context, userID int64) ([]model.CartLine, error) {
	return r.queryLines(ctx, r.db, selectLines, userID)
}

func (r *repo) queryLines(ctx context.Context, q database.Querier, query string, args ...any) ([]model.CartLine, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ID, &l.UserID, &l.BookID, &l.BookName, &l.Price, &l.Quantity, &l.CheckedOut, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repo) LineOwner(ctx context.Context, lineID int64) (int64, bool, error) {
	const q = `SELECT user_id, checked_out FROM cart_lines WHERE id = $1`
	var (
		owner int64
		done  bool
	)
	err := r.db.QueryRowContext(ctx, q, lineID).Scan(&owner, &done)
	return owner, done, err
}

func (r *repo) SetQuantity(ctx context.Context, lineID int64, qty int) error {
	const q = `
		UPDATE cart_lines
		SET quantity = $2
		WHERE id = $1
		AND NOT checked_out`
	return expectOne(r.db.ExecContext(ctx, q, lineID, qty))
}

func (r *repo) DeleteLine(ctx context.Context, lineID int64) error {
	const q = `DELETE FROM cart_lines WHERE id = $1 AND NOT checked_out`
	return expectOne(r.db.ExecContext(ctx, q, lineID))
}

// Checkout

// LockOpenLines locks the open lines in book order so concurrent checkouts
// touching the same books acquire row locks in the same sequence.
func (r *repo) LockOpenLines(ctx context.Context, tx *sql.Tx, userID int64) ([]model.CartLine, error) {
	return r.queryLines(ctx, database.Use(r.db, tx), selectLines+`
		FOR UPDATE OF c`, userID)
}

// DecrementStock reports false when the book has fewer copies than qty.
func (r *repo) DecrementStock(ctx context.Context, tx *sql.Tx, bookID int64, qty int) (bool, error) {
	const q = `
		UPDATE books
		SET quantity = quantity - $2
		WHERE id = $1
		AND quantity >= $2`
	res, err := database.Use(r.db, tx).ExecContext(ctx, q, bookID, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *repo) MarkCheckedOut(ctx context.Context, tx *sql.Tx, lineIDs []int64) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	const q = `
		UPDATE cart_lines
		SET checked_out = TRUE,
			checked_out_at = NOW()
		WHERE id = ANY($1)
		AND NOT checked_out`
	res, err := database.Use(r.db, tx).ExecContext(ctx, q, lineIDs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Returns

func (r *repo) LockBook(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error) {
	const q = `SELECT id FROM books WHERE id = $1 FOR UPDATE`
	var id int64
	err := database.Use(r.db, tx).QueryRowContext(ctx, q, bookID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// NetPurchased is the checked-out quantity minus everything already returned.
func (r *repo) NetPurchased(ctx context.Context, tx *sql.Tx, userID, bookID int64) (int, error) {
	const q = `
		SELECT
			COALESCE((SELECT SUM(quantity) FROM cart_lines
				WHERE user_id = $1 AND book_id = $2 AND checked_out), 0)
			-
			COALESCE((SELECT SUM(quantity) FROM book_returns
				WHERE user_id = $1 AND book_id = $2), 0)`
	var n int
	err := database.Use(r.db, tx).QueryRowContext(ctx, q, userID, bookID).Scan(&n)
	return n, err
}

func (r *repo) IncrementStock(ctx context.Context, tx *sql.Tx, bookID int64, qty int) error {
	const q = `UPDATE books SET quantity = quantity + $2 WHERE id = $1`
	return expectOne(database.Use(r.db, tx).ExecContext(ctx, q, bookID, qty))
}

func (r *repo) InsertReturn(ctx context.Context, tx *sql.Tx, rec *model.ReturnRecord) error {
	const q = `
		INSERT INTO book_returns (user_id, book_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, returned_at`
	return database.Use(r.db, tx).QueryRowContext(ctx, q, rec.UserID, rec.BookID, rec.Quantity).
		Scan(&rec.ID, &rec.ReturnedAt)
}

func (r *repo) ListReturns(ctx context.Context, userID int64) ([]model.ReturnRecord, error) {
	const q = `
		SELECT id, user_id, book_id, quantity, returned_at
		FROM book_returns
		WHERE user_id = $1
		ORDER BY returned_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ReturnRecord{}
	for rows.Next() {
		var rec model.ReturnRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.BookID, &rec.Quantity, &rec.ReturnedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
