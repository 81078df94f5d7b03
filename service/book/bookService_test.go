package booksvc_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"bookex/model"
	bookrepo "bookex/repository/book"
	booksvc "bookex/service/book"
	"bookex/util/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type repoMock struct {
	searchFn   func(ctx context.Context, f model.BookFilter) ([]model.Listing, error)
	detailFn   func(ctx context.Context, id int64) (*model.Listing, error)
	createFn   func(ctx context.Context, b *model.Book, meta *model.ExclusiveMeta) error
	updateFn   func(ctx context.Context, b *model.Book, meta *model.ExclusiveMeta) error
	deleteFn   func(ctx context.Context, id int64) error
	exclusive  []model.Listing
	favorites  []model.Listing
	bumps      []string
	featuredOn map[int64]bool
}

var _ bookrepo.Repo = (*repoMock)(nil)

func (m *repoMock) Search(ctx context.Context, f model.BookFilter) ([]model.Listing, error) {
	return m.searchFn(ctx, f)
}
func (m *repoMock) Detail(ctx context.Context, id int64) (*model.Listing, error) {
	return m.detailFn(ctx, id)
}
func (m *repoMock) Exists(ctx context.Context, id int64) (bool, error) { return true, nil }
func (m *repoMock) Create(ctx context.Context, tx *sql.Tx, b *model.Book, meta *model.ExclusiveMeta) error {
	return m.createFn(ctx, b, meta)
}
func (m *repoMock) Update(ctx context.Context, tx *sql.Tx, b *model.Book, meta *model.ExclusiveMeta) error {
	return m.updateFn(ctx, b, meta)
}
func (m *repoMock) Delete(ctx context.Context, id int64) error { return m.deleteFn(ctx, id) }
func (m *repoMock) ListOwned(ctx context.Context, userID int64) ([]model.Listing, error) {
	return nil, nil
}
func (m *repoMock) ListPurchased(ctx context.Context, userID int64) ([]model.Listing, error) {
	return nil, nil
}
func (m *repoMock) ListFavorites(ctx context.Context, userID int64) ([]model.Listing, error) {
	return m.favorites, nil
}
func (m *repoMock) ListExclusive(ctx context.Context) ([]model.Listing, error) {
	return m.exclusive, nil
}
func (m *repoMock) BumpCounter(ctx context.Context, bookID int64, kind model.CounterKind, bucket string) error {
	m.bumps = append(m.bumps, string(kind)+":"+bucket)
	return nil
}
func (m *repoMock) SetFeatured(ctx context.Context, bookID int64, featured bool) error {
	if m.featuredOn == nil {
		m.featuredOn = map[int64]bool{}
	}
	m.featuredOn[bookID] = featured
	return nil
}

type reverseRanker struct{ called bool }

func (r *reverseRanker) Rank(ctx context.Context, q string, in []model.Listing) []model.Listing {
	r.called = true
	out := make([]model.Listing, len(in))
	for i, l := range in {
		out[len(in)-1-i] = l
	}
	return out
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func ptr[T any](v T) *T { return &v }

func viewer(id int64, role model.Role, tier model.Tier, balance string) model.Viewer {
	return model.NewViewer(&model.Profile{UserID: id, Role: role, Tier: tier, Balance: decimal.RequireFromString(balance)})
}

func plain(id int64) model.Listing {
	return model.Listing{Book: model.Book{ID: id, Name: "plain", Price: decimal.NewFromInt(5)}}
}

func exclusive(id int64, tier model.Tier, owner int64) model.Listing {
	return model.Listing{
		Book: model.Book{ID: id, Name: "excl", Exclusive: true, OwnerID: ptr(owner)},
		Meta: &model.ExclusiveMeta{BookID: id, RequiredTier: tier},
	}
}

func TestSearch_AccessAppliedBeforeResults(t *testing.T) {
	m := &repoMock{searchFn: func(ctx context.Context, f model.BookFilter) ([]model.Listing, error) {
		return []model.Listing{plain(1), exclusive(2, model.TierSilver, 9), plain(3)}, nil
	}}
	s := booksvc.New(fakeTx{}, m, nil, discard())

	got, err := s.Search(context.Background(), model.Anonymous(), model.BookFilter{}, false)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = s.Search(context.Background(), viewer(1, model.RoleRegular, model.TierSilver, "45"), model.BookFilter{}, false)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestSearch_UnratedStaysNull(t *testing.T) {
	rated := plain(2)
	rated.AvgRating = ptr(4.5)
	m := &repoMock{searchFn: func(ctx context.Context, f model.BookFilter) ([]model.Listing, error) {
		return []model.Listing{plain(1), rated}, nil
	}}
	s := booksvc.New(fakeTx{}, m, nil, discard())

	got, err := s.Search(context.Background(), model.Anonymous(), model.BookFilter{}, false)
	require.NoError(t, err)
	require.Nil(t, got[0].AvgRating)
	require.InDelta(t, 4.5, *got[1].AvgRating, 1e-9)
}

func TestSearch_PassesFilterAndValidates(t *testing.T) {
	var seen model.BookFilter
	m := &repoMock{searchFn: func(ctx context.Context, f model.BookFilter) ([]model.Listing, error) {
		seen = f
		return nil, nil
	}}
	s := booksvc.New(fakeTx{}, m, nil, discard())

	_, err := s.Search(context.Background(), model.Anonymous(), model.BookFilter{Query: "  dune ", MinRating: ptr(3.0)}, false)
	require.NoError(t, err)
	require.Equal(t, "dune", seen.Query)

	bad := []model.BookFilter{
		{MinRating: ptr(6.0)},
		{MinPrice: ptr(decimal.NewFromInt(10)), MaxPrice: ptr(decimal.NewFromInt(5))},
		{Tier: "Diamond"},
	}
	for _, f := range bad {
		_, err := s.Search(context.Background(), model.Anonymous(), f, false)
		require.Equal(t, apperr.BadInput, apperr.CodeOf(err))
	}
}

func TestSearch_AIUsesRanker(t *testing.T) {
	m := &repoMock{searchFn: func(ctx context.Context, f model.BookFilter) ([]model.Listing, error) {
		return []model.Listing{plain(1), plain(2)}, nil
	}}
	r := &reverseRanker{}
	s := booksvc.New(fakeTx{}, m, r, discard())

	got, err := s.Search(context.Background(), model.Anonymous(), model.BookFilter{}, false)
	require.NoError(t, err)
	require.False(t, r.called)
	require.Equal(t, int64(1), got[0].ID)

	got, err = s.Search(context.Background(), model.Anonymous(), model.BookFilter{}, true)
	require.NoError(t, err)
	require.True(t, r.called)
	require.Equal(t, int64(2), got[0].ID)
}

func TestDetail_DeniedAndCounted(t *testing.T) {
	m := &repoMock{detailFn: func(ctx context.Context, id int64) (*model.Listing, error) {
		if id == 404 {
			return nil, nil
		}
		l := exclusive(id, model.TierSilver, 9)
		return &l, nil
	}}
	s := booksvc.New(fakeTx{}, m, nil, discard())
	ctx := context.Background()

	_, err := s.Detail(ctx, model.Anonymous(), 1)
	require.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))

	_, err = s.Detail(ctx, viewer(1, model.RoleRegular, model.TierSilver, "10"), 1)
	require.Equal(t, apperr.Forbidden, apperr.CodeOf(err))
	require.Equal(t, "subscription_paused", apperr.ReasonOf(err))

	_, err = s.Detail(ctx, viewer(1, model.RoleRegular, model.TierBronze, "100"), 1)
	require.Equal(t, "tier_too_low", apperr.ReasonOf(err))

	_, err = s.Detail(ctx, model.Anonymous(), 404)
	require.Equal(t, apperr.NotFound, apperr.CodeOf(err))

	l, err := s.Detail(ctx, viewer(1, model.RoleRegular, model.TierGold, "100"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), l.Meta.ViewsGold)
	require.Equal(t, []string{"views:gold"}, m.bumps)

	_, err = s.Detail(ctx, viewer(2, model.RoleWriter, model.TierFree, "0"), 1)
	require.NoError(t, err)
	require.Len(t, m.bumps, 1)
}

func TestCreate_ExclusiveOnlyForWriters(t *testing.T) {
	var created *model.ExclusiveMeta
	m := &repoMock{createFn: func(ctx context.Context, b *model.Book, meta *model.ExclusiveMeta) error {
		b.ID = 42
		created = meta
		return nil
	}}
	s := booksvc.New(fakeTx{}, m, nil, discard())
	ctx := context.Background()
	in := booksvc.BookInput{Name: "Secret", Price: decimal.NewFromInt(12), Quantity: 3, Exclusive: true, RequiredTier: model.TierGoldOnly}

	_, err := s.Create(ctx, viewer(1, model.RolePublisher, model.TierFree, "0"), in)
	require.Equal(t, apperr.Forbidden, apperr.CodeOf(err))

	l, err := s.Create(ctx, viewer(1, model.RoleWriter, model.TierFree, "0"), in)
	require.NoError(t, err)
	require.Equal(t, int64(42), l.ID)
	require.True(t, l.OwnedBy(1))
	require.NotNil(t, created)
	require.Equal(t, model.TierGoldOnly, created.RequiredTier)

	in.Exclusive = false
	_, err = s.Create(ctx, viewer(1, model.RoleRegular, model.TierFree, "0"), in)
	require.NoError(t, err)
	require.Nil(t, created)
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(fakeTx{}, &repoMock{}, nil, discard())
	w := viewer(1, model.RoleWriter, model.TierFree, "0")
	bad := []booksvc.BookInput{
		{Name: " ", Price: decimal.NewFromInt(1)},
		{Name: "x", Price: decimal.NewFromInt(-1)},
		{Name: "x", Price: decimal.RequireFromString("1.005")},
		{Name: "x", Quantity: -1},
		{Name: "x", Exclusive: true, RequiredTier: model.TierFree},
	}
	for _, in := range bad {
		_, err := s.Create(context.Background(), w, in)
		require.Equal(t, apperr.BadInput, apperr.CodeOf(err), "%+v", in)
	}

	_, err := s.Create(context.Background(), model.Anonymous(), booksvc.BookInput{Name: "x"})
	require.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
}

func TestUpdateDelete_OwnerOnly(t *testing.T) {
	deleted := false
	m := &repoMock{
		detailFn: func(ctx context.Context, id int64) (*model.Listing, error) {
			l := plain(id)
			l.OwnerID = ptr(int64(5))
			return &l, nil
		},
		updateFn: func(ctx context.Context, b *model.Book, meta *model.ExclusiveMeta) error { return nil },
		deleteFn: func(ctx context.Context, id int64) error { deleted = true; return nil },
	}
	s := booksvc.New(fakeTx{}, m, nil, discard())
	ctx := context.Background()
	other := viewer(6, model.RoleWriter, model.TierFree, "0")
	owner := viewer(5, model.RoleRegular, model.TierFree, "0")

	_, err := s.Update(ctx, other, 1, booksvc.BookInput{Name: "new"})
	require.Equal(t, apperr.Forbidden, apperr.CodeOf(err))
	require.Equal(t, apperr.Forbidden, apperr.CodeOf(s.Delete(ctx, other, 1)))
	require.False(t, deleted)

	l, err := s.Update(ctx, owner, 1, booksvc.BookInput{Name: "new", Price: decimal.NewFromInt(3)})
	require.NoError(t, err)
	require.Equal(t, "new", l.Name)
	require.NoError(t, s.Delete(ctx, owner, 1))
	require.True(t, deleted)
}

func TestUpdate_RepoMissingRow(t *testing.T) {
	m := &repoMock{
		detailFn: func(ctx context.Context, id int64) (*model.Listing, error) {
			l := plain(id)
			l.OwnerID = ptr(int64(5))
			return &l, nil
		},
		updateFn: func(ctx context.Context, b *model.Book, meta *model.ExclusiveMeta) error { return sql.ErrNoRows },
	}
	s := booksvc.New(fakeTx{}, m, nil, discard())
	_, err := s.Update(context.Background(), viewer(5, model.RoleRegular, model.TierFree, "0"), 1, booksvc.BookInput{Name: "n"})
	require.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}

func TestListExclusive_FiltersByAccess(t *testing.T) {
	m := &repoMock{exclusive: []model.Listing{exclusive(1, model.TierBronze, 9), exclusive(2, model.TierGold, 9)}}
	s := booksvc.New(fakeTx{}, m, nil, discard())

	got, err := s.ListExclusive(context.Background(), viewer(1, model.RoleRegular, model.TierBronze, "20"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].ID)
}

func TestStatsAndFeatured(t *testing.T) {
	m := &repoMock{detailFn: func(ctx context.Context, id int64) (*model.Listing, error) {
		if id == 2 {
			l := plain(2)
			l.OwnerID = ptr(int64(9))
			return &l, nil
		}
		l := exclusive(id, model.TierGold, 9)
		l.Meta.ViewsSilver = 4
		return &l, nil
	}}
	s := booksvc.New(fakeTx{}, m, nil, discard())
	ctx := context.Background()
	owner := viewer(9, model.RoleWriter, model.TierFree, "0")

	st, err := s.Stats(ctx, owner, 1)
	require.NoError(t, err)
	require.Equal(t, int64(4), st.ViewsSilver)

	_, err = s.Stats(ctx, viewer(3, model.RoleWriter, model.TierFree, "0"), 1)
	require.Equal(t, apperr.Forbidden, apperr.CodeOf(err))

	_, err = s.Stats(ctx, owner, 2)
	require.Equal(t, apperr.BadInput, apperr.CodeOf(err))

	require.NoError(t, s.SetFeatured(ctx, owner, 1, true))
	require.True(t, m.featuredOn[1])
}

func TestSearch_RepoError(t *testing.T) {
	m := &repoMock{searchFn: func(ctx context.Context, f model.BookFilter) ([]model.Listing, error) {
		return nil, errors.New("boom")
	}}
	_, err := booksvc.New(fakeTx{}, m, nil, discard()).Search(context.Background(), model.Anonymous(), model.BookFilter{}, false)
	require.Error(t, err)
}

func TestFavorites_HiddenWhenTierLapses(t *testing.T) {
	m := &repoMock{favorites: []model.Listing{plain(1), exclusive(2, model.TierGold, 9)}}
	s := booksvc.New(fakeTx{}, m, nil, discard())

	paused := viewer(1, model.RoleRegular, model.TierGold, "0")
	got, err := s.Favorites(context.Background(), paused)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].ID)

	mine, err := s.MyBooks(context.Background(), paused)
	require.NoError(t, err)
	require.Len(t, mine.Favorites, 1)

	silver := viewer(1, model.RoleRegular, model.TierSilver, "100")
	got, err = s.Favorites(context.Background(), silver)
	require.NoError(t, err)
	require.Len(t, got, 1)

	gold := viewer(1, model.RoleRegular, model.TierGold, "100")
	got, err = s.Favorites(context.Background(), gold)
	require.NoError(t, err)
	require.Len(t, got, 2)
}
