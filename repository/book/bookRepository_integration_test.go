//go:build integration

package bookrepo

import (
	"context"
	"testing"

	"bookex/model"
	"bookex/util/database"
	"bookex/util/testdb"

	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, db *database.DB) {
	testdb.Exec(t, db, `INSERT INTO users (id, email, username, password_hash) VALUES
		(1, 'w@x.io', 'writer', 'h'), (2, 'r@x.io', 'reader', 'h')`)
	testdb.Exec(t, db, `INSERT INTO books (id, name, price, quantity, is_exclusive, owner_id) VALUES
		(10, 'Dune', 12.50, 3, FALSE, NULL),
		(11, '100% Pure', 8.00, 1, FALSE, NULL),
		(12, 'Gold Notes', 20.00, 0, TRUE, 1),
		(13, 'Silver_Lines', 15.00, 0, TRUE, 1)`)
	testdb.Exec(t, db, `INSERT INTO exclusive_book_meta (book_id, required_tier, views_gold) VALUES
		(12, 'Gold', 2), (13, 'Silver', 0)`)
}

func ids(rows []model.Listing) []int64 {
	out := make([]int64, 0, len(rows))
	for _, l := range rows {
		out = append(out, l.ID)
	}
	return out
}

func TestAvgRating_NullUntilFirstRating(t *testing.T) {
	db := testdb.Start(t)
	seedCatalog(t, db)
	ctx := context.Background()
	r := New(db.SQL)

	l, err := r.Detail(ctx, 10)
	require.NoError(t, err)
	require.Nil(t, l.AvgRating)

	testdb.Exec(t, db, `INSERT INTO ratings (user_id, book_id, rating) VALUES (2, 10, 4)`)
	l, err = r.Detail(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, l.AvgRating)
	require.InDelta(t, 4.0, *l.AvgRating, 1e-9)

	missing, err := r.Detail(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSearch_Filters(t *testing.T) {
	db := testdb.Start(t)
	seedCatalog(t, db)
	testdb.Exec(t, db, `INSERT INTO ratings (user_id, book_id, rating) VALUES (1, 10, 5), (2, 10, 3), (2, 11, 2)`)
	ctx := context.Background()
	r := New(db.SQL)

	all, err := r.Search(ctx, model.BookFilter{})
	require.NoError(t, err)
	require.Equal(t, []int64{13, 12, 11, 10}, ids(all))

	min := 3.0
	rated, err := r.Search(ctx, model.BookFilter{MinRating: &min})
	require.NoError(t, err)
	require.Equal(t, []int64{10}, ids(rated), "unrated books never pass a rating floor")

	excl := true
	got, err := r.Search(ctx, model.BookFilter{Exclusive: &excl})
	require.NoError(t, err)
	require.Equal(t, []int64{13, 12}, ids(got))
	require.Equal(t, model.TierGold, got[1].Meta.RequiredTier)
	require.Equal(t, int64(2), got[1].Meta.ViewsGold)

	got, err = r.Search(ctx, model.BookFilter{Exclusive: &excl, Tier: model.TierSilver})
	require.NoError(t, err)
	require.Equal(t, []int64{13}, ids(got))

	notExcl := false
	got, err = r.Search(ctx, model.BookFilter{Exclusive: &notExcl})
	require.NoError(t, err)
	require.Equal(t, []int64{11, 10}, ids(got))
}

func TestSearch_QueryIsLiteral(t *testing.T) {
	db := testdb.Start(t)
	seedCatalog(t, db)
	ctx := context.Background()
	r := New(db.SQL)

	got, err := r.Search(ctx, model.BookFilter{Query: "%"})
	require.NoError(t, err)
	require.Equal(t, []int64{11}, ids(got))

	got, err = r.Search(ctx, model.BookFilter{Query: "d_n"})
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = r.Search(ctx, model.BookFilter{Query: "_lines"})
	require.NoError(t, err)
	require.Equal(t, []int64{13}, ids(got))

	got, err = r.Search(ctx, model.BookFilter{Query: "DUNE"})
	require.NoError(t, err)
	require.Equal(t, []int64{10}, ids(got))
}
