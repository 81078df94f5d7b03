package bookrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookex/model"
	"bookex/util/database"

	"github.com/shopspring/decimal"
)

type Repo interface {
	Search(ctx context.Context, f model.BookFilter) ([]model.Listing, error)
	// Detail returns nil, nil when the book does not exist.
	Detail(ctx context.Context, id int64) (*model.Listing, error)
	Exists(ctx context.Context, id int64) (bool, error)

	Create(ctx context.Context, tx *sql.Tx, b *model.Book, meta *model.ExclusiveMeta) error
	Update(ctx context.Context, tx *sql.Tx, b *model.Book, meta *model.ExclusiveMeta) error
	Delete(ctx context.Context, id int64) error

	ListOwned(ctx context.Context, userID int64) ([]model.Listing, error)
	ListPurchased(ctx context.Context, userID int64) ([]model.Listing, error)
	ListFavorites(ctx context.Context, userID int64) ([]model.Listing, error)
	ListExclusive(ctx context.Context) ([]model.Listing, error)

	BumpCounter(ctx context.Context, bookID int64, kind model.CounterKind, bucket string) error
	SetFeatured(ctx context.Context, bookID int64, featured bool) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

// selectListing joins each book with its exclusive metadata, average rating
// and comment count. avg_rating stays NULL for unrated books.
const selectListing = `
SELECT b.id, b.name, b.web, b.price, b.is_exclusive, b.owner_id, b.quantity, b.cover_path, b.published_at,
       m.book_id IS NOT NULL AS has_meta,
       COALESCE(m.required_tier, ''),
       COALESCE(m.views_bronze, 0), COALESCE(m.views_silver, 0), COALESCE(m.views_gold, 0),
       COALESCE(m.favorited_bronze, 0), COALESCE(m.favorited_silver, 0), COALESCE(m.favorited_gold, 0),
       COALESCE(m.is_featured, FALSE),
       r.avg_rating,
       COALESCE(c.comment_count, 0)
FROM books b
LEFT JOIN exclusive_book_meta m ON m.book_id = b.id
LEFT JOIN (
	SELECT book_id, AVG(rating)::float8 AS avg_rating
	FROM ratings
	GROUP BY book_id
) r ON r.book_id = b.id
LEFT JOIN (
	SELECT book_id, COUNT(*) AS comment_count
	FROM comments
	GROUP BY book_id
) c ON c.book_id = b.id`

func scanListing(rows interface{ Scan(dest ...any) error }) (model.Listing, error) {
	var (
		l       model.Listing
		owner   sql.NullInt64
		hasMeta bool
		tier    string
		avg     sql.NullFloat64
		m       model.ExclusiveMeta
	)
	err := rows.Scan(
		&l.ID, &l.Name, &l.Web, &l.Price, &l.Exclusive, &owner, &l.Quantity, &l.CoverPath, &l.PublishedAt,
		&hasMeta, &tier,
		&m.ViewsBronze, &m.ViewsSilver, &m.ViewsGold,
		&m.FavoritedBronze, &m.FavoritedSilver, &m.FavoritedGold,
		&m.Featured,
		&avg,
		&l.CommentCount,
	)
	if err != nil {
		return l, err
	}
	if owner.Valid {
		id := owner.Int64
		l.OwnerID = &id
	}
	if hasMeta {
		m.BookID = l.ID
		m.RequiredTier = model.Tier(tier)
		l.Meta = &m
	}
	if avg.Valid {
		v := avg.Float64
		l.AvgRating = &v
	}
	return l, nil
}

func (r *repo) list(ctx context.Context, suffix string, args ...any) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx, selectListing+"\n"+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repo) Search(ctx context.Context, f model.BookFilter) ([]model.Listing, error) {
	const where = `
WHERE ($1::text = '' OR strpos(lower(b.name), lower($1::text)) > 0)
  AND ($2::float8 IS NULL OR r.avg_rating >= $2::float8)
  AND ($3::numeric IS NULL OR b.price >= $3::numeric)
  AND ($4::numeric IS NULL OR b.price <= $4::numeric)
  AND ($5::boolean IS NULL OR b.is_exclusive = $5::boolean)
  AND ($6::text = '' OR m.required_tier = $6::text)
ORDER BY b.published_at DESC, b.id DESC`
	return r.list(ctx, where,
		f.Query, nullFloat(f.MinRating), nullDecimal(f.MinPrice), nullDecimal(f.MaxPrice),
		nullBool(f.Exclusive), string(f.Tier),
	)
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, selectListing+"\nWHERE b.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repo) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *repo) Create(ctx context.Context, tx *sql.Tx, b *model.Book, meta *model.ExclusiveMeta) error {
	const q = `
INSERT INTO books (name, web, price, is_exclusive, owner_id, quantity, cover_path)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, published_at`
	db := database.Use(r.db, tx)
	if err := db.QueryRowContext(ctx, q,
		b.Name, b.Web, b.Price, b.Exclusive, nullInt(b.OwnerID), b.Quantity, b.CoverPath,
	).Scan(&b.ID, &b.PublishedAt); err != nil {
		return err
	}
	if meta == nil {
		return nil
	}
	meta.BookID = b.ID
	const qm = `INSERT INTO exclusive_book_meta (book_id, required_tier) VALUES ($1, $2)`
	_, err := db.ExecContext(ctx, qm, b.ID, string(meta.RequiredTier))
	return err
}

// Update rewrites the editable book fields and keeps the metadata row in
// step with the exclusive flag.
func (r *repo) Update(ctx context.Context, tx *sql.Tx, b *model.Book, meta *model.ExclusiveMeta) error {
	const q = `
UPDATE books
SET name = $2, web = $3, price = $4, is_exclusive = $5, quantity = $6, cover_path = $7
WHERE id = $1`
	db := database.Use(r.db, tx)
	res, err := db.ExecContext(ctx, q, b.ID, b.Name, b.Web, b.Price, b.Exclusive, b.Quantity, b.CoverPath)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if meta == nil {
		_, err = db.ExecContext(ctx, `DELETE FROM exclusive_book_meta WHERE book_id = $1`, b.ID)
		return err
	}
	const qm = `
INSERT INTO exclusive_book_meta (book_id, required_tier)
VALUES ($1, $2)
ON CONFLICT (book_id) DO UPDATE SET required_tier = EXCLUDED.required_tier`
	_, err = db.ExecContext(ctx, qm, b.ID, string(meta.RequiredTier))
	return err
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ListOwned(ctx context.Context, userID int64) ([]model.Listing, error) {
	return r.list(ctx, `WHERE b.owner_id = $1 ORDER BY b.published_at DESC, b.id DESC`, userID)
}

func (r *repo) ListPurchased(ctx context.Context, userID int64) ([]model.Listing, error) {
	return r.list(ctx, `
WHERE b.id IN (SELECT book_id FROM cart_lines WHERE user_id = $1 AND checked_out)
ORDER BY b.name, b.id`, userID)
}

func (r *repo) ListFavorites(ctx context.Context, userID int64) ([]model.Listing, error) {
	return r.list(ctx, `
WHERE b.id IN (SELECT book_id FROM favorites WHERE user_id = $1)
ORDER BY b.name, b.id`, userID)
}

func (r *repo) ListExclusive(ctx context.Context) ([]model.Listing, error) {
	return r.list(ctx, `
WHERE b.is_exclusive
ORDER BY COALESCE(m.is_featured, FALSE) DESC, b.published_at DESC, b.id DESC`)
}

// counterColumn whitelists the stats columns; kind and bucket never reach
// the SQL text unchecked.
func counterColumn(kind model.CounterKind, bucket string) (string, error) {
	switch kind {
	case model.CounterViews, model.CounterFavorited:
	default:
		return "", fmt.Errorf("unknown counter kind %q", kind)
	}
	switch bucket {
	case "bronze", "silver", "gold":
	default:
		return "", fmt.Errorf("unknown tier bucket %q", bucket)
	}
	return string(kind) + "_" + bucket, nil
}

func (r *repo) BumpCounter(ctx context.Context, bookID int64, kind model.CounterKind, bucket string) error {
	col, err := counterColumn(kind, bucket)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE exclusive_book_meta SET %s = %s + 1 WHERE book_id = $1`, col, col)
	_, err = r.db.ExecContext(ctx, q, bookID)
	return err
}

func (r *repo) SetFeatured(ctx context.Context, bookID int64, featured bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE exclusive_book_meta SET is_featured = $2 WHERE book_id = $1`, bookID, featured)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
