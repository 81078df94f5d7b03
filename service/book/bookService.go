package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookex/model"
	bookrepo "bookex/repository/book"
	"bookex/service/access"
	"bookex/util/apperr"
	"bookex/util/database"

	"github.com/shopspring/decimal"
)

// Ranker reorders search results. Implementations must return a
// permutation of in and never fail.
type Ranker interface {
	Rank(ctx context.Context, query string, in []model.Listing) []model.Listing
}

// BookInput is the editable part of a book.
type BookInput struct {
	Name         string
	Web          string
	Price        decimal.Decimal
	Quantity     int64
	CoverPath    string
	Exclusive    bool
	RequiredTier model.Tier
}

type MyBooks struct {
	Posted    []model.Listing `json:"posted"`
	Purchased []model.Listing `json:"purchased"`
	Favorites []model.Listing `json:"favorites"`
}

type Service interface {
	Search(ctx context.Context, v model.Viewer, f model.BookFilter, ai bool) ([]model.Listing, error)
	// Detail checks access and records an exclusive view for subscribers.
	Detail(ctx context.Context, v model.Viewer, id int64) (*model.Listing, error)
	// Viewable is Detail without side effects.
	Viewable(ctx context.Context, v model.Viewer, id int64) (*model.Listing, error)

	Create(ctx context.Context, v model.Viewer, in BookInput) (*model.Listing, error)
	Update(ctx context.Context, v model.Viewer, id int64, in BookInput) (*model.Listing, error)
	Delete(ctx context.Context, v model.Viewer, id int64) error
	MyBooks(ctx context.Context, v model.Viewer) (*MyBooks, error)
	Favorites(ctx context.Context, v model.Viewer) ([]model.Listing, error)

	ListExclusive(ctx context.Context, v model.Viewer) ([]model.Listing, error)
	Stats(ctx context.Context, v model.Viewer, id int64) (*model.ExclusiveStats, error)
	SetFeatured(ctx context.Context, v model.Viewer, id int64, featured bool) error
	// RecordFavorite bumps the favorited counter of an exclusive book.
	RecordFavorite(ctx context.Context, v model.Viewer, l *model.Listing)
}

type service struct {
	tx     database.Transactor
	r      bookrepo.Repo
	ranker Ranker
	log    *slog.Logger
}

// New wires the catalog. ranker may be nil, in which case ai searches keep
// the default order.
func New(tx database.Transactor, r bookrepo.Repo, ranker Ranker, log *slog.Logger) Service {
	return &service{tx: tx, r: r, ranker: ranker, log: log}
}

func errNotFound() error {
	return apperr.New(apperr.NotFound, "book_not_found", "book not found")
}

func errNotOwner() error {
	return apperr.New(apperr.Forbidden, "not_owner", "only the owner can change this book")
}

func validateFilter(f model.BookFilter) error {
	if f.MinRating != nil && (*f.MinRating < 1 || *f.MinRating > 5) {
		return apperr.New(apperr.BadInput, "invalid_filter", "min_rating must be between 1 and 5")
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return apperr.New(apperr.BadInput, "invalid_filter", "min_price must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return apperr.New(apperr.BadInput, "invalid_filter", "min_price is above max_price")
	}
	if f.Tier != "" && !f.Tier.Valid() {
		return apperr.New(apperr.BadInput, "invalid_filter", fmt.Sprintf("unknown tier %q", f.Tier))
	}
	return nil
}

func (s *service) Search(ctx context.Context, v model.Viewer, f model.BookFilter, ai bool) ([]model.Listing, error) {
	f.Query = strings.TrimSpace(f.Query)
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	all, err := s.r.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	out := access.Visible(v, all)
	if ai && s.ranker != nil && len(out) > 1 {
		out = s.ranker.Rank(ctx, f.Query, out)
	}
	return out, nil
}

func (s *service) Viewable(ctx context.Context, v model.Viewer, id int64) (*model.Listing, error) {
	l, err := s.r.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errNotFound()
	}
	if err := access.CanView(v, l.Book, l.Meta).Err(); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) Detail(ctx context.Context, v model.Viewer, id int64) (*model.Listing, error) {
	l, err := s.Viewable(ctx, v, id)
	if err != nil {
		return nil, err
	}
	s.bump(ctx, v, l, model.CounterViews)
	return l, nil
}

func (s *service) RecordFavorite(ctx context.Context, v model.Viewer, l *model.Listing) {
	s.bump(ctx, v, l, model.CounterFavorited)
}

// bump counts activity on exclusive books by Regular subscribers, bucketed
// by their tier. Counter failures are logged only.
func (s *service) bump(ctx context.Context, v model.Viewer, l *model.Listing, kind model.CounterKind) {
	if l.Meta == nil || v.Role() != model.RoleRegular {
		return
	}
	bucket := v.Profile.Tier.Bucket()
	if bucket == "" {
		return
	}
	if err := s.r.BumpCounter(ctx, l.ID, kind, bucket); err != nil {
		s.log.Warn("exclusive counter update failed", "book_id", l.ID, "kind", string(kind), "err", err)
		return
	}
	switch kind {
	case model.CounterViews:
		l.Meta.AddView(bucket)
	case model.CounterFavorited:
		l.Meta.AddFavorite(bucket)
	}
}

func validateInput(v model.Viewer, in *BookInput) (*model.ExclusiveMeta, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return nil, apperr.New(apperr.BadInput, "invalid_book", "name is required")
	case in.Price.IsNegative():
		return nil, apperr.New(apperr.BadInput, "invalid_book", "price must not be negative")
	case !in.Price.Equal(in.Price.Round(2)):
		return nil, apperr.New(apperr.BadInput, "invalid_book", "price has more than two decimals")
	case in.Quantity < 0:
		return nil, apperr.New(apperr.BadInput, "invalid_book", "quantity must not be negative")
	}
	if !in.Exclusive {
		return nil, nil
	}
	if v.Role() != model.RoleWriter {
		return nil, apperr.New(apperr.Forbidden, "role_forbidden", "only writers can publish exclusive books")
	}
	if !in.RequiredTier.Valid() || in.RequiredTier == model.TierFree {
		return nil, apperr.New(apperr.BadInput, "invalid_book", "exclusive books need a paid required tier")
	}
	return &model.ExclusiveMeta{RequiredTier: in.RequiredTier}, nil
}

func (in BookInput) apply(b *model.Book) {
	b.Name = in.Name
	b.Web = strings.TrimSpace(in.Web)
	b.Price = in.Price
	b.Quantity = in.Quantity
	b.CoverPath = in.CoverPath
	b.Exclusive = in.Exclusive
}

func (s *service) Create(ctx context.Context, v model.Viewer, in BookInput) (*model.Listing, error) {
	if !v.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "login_required", "login required")
	}
	meta, err := validateInput(v, &in)
	if err != nil {
		return nil, err
	}

	owner := v.UserID
	b := model.Book{OwnerID: &owner}
	in.apply(&b)
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.r.Create(ctx, tx, &b, meta)
	})
	if err != nil {
		return nil, err
	}
	return &model.Listing{Book: b, Meta: meta}, nil
}

func (s *service) owned(ctx context.Context, v model.Viewer, id int64) (*model.Listing, error) {
	if !v.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "login_required", "login required")
	}
	l, err := s.r.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errNotFound()
	}
	if !l.OwnedBy(v.UserID) {
		return nil, errNotOwner()
	}
	return l, nil
}

func (s *service) Update(ctx context.Context, v model.Viewer, id int64, in BookInput) (*model.Listing, error) {
	cur, err := s.owned(ctx, v, id)
	if err != nil {
		return nil, err
	}
	meta, err := validateInput(v, &in)
	if err != nil {
		return nil, err
	}

	b := cur.Book
	in.apply(&b)
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.r.Update(ctx, tx, &b, meta)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, err
	}

	// keep counters when the book stays exclusive
	if meta != nil && cur.Meta != nil {
		kept := *cur.Meta
		kept.RequiredTier = meta.RequiredTier
		meta = &kept
	}
	return &model.Listing{Book: b, Meta: meta, AvgRating: cur.AvgRating, CommentCount: cur.CommentCount}, nil
}

func (s *service) Delete(ctx context.Context, v model.Viewer, id int64) error {
	if _, err := s.owned(ctx, v, id); err != nil {
		return err
	}
	err := s.r.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound()
	}
	return err
}

// MyBooks returns the viewer's posted and purchased books unfiltered. Favorites
// go through the access rules since a lapsed tier hides them again.
func (s *service) MyBooks(ctx context.Context, v model.Viewer) (*MyBooks, error) {
	posted, err := s.r.ListOwned(ctx, v.UserID)
	if err != nil {
		return nil, err
	}
	purchased, err := s.r.ListPurchased(ctx, v.UserID)
	if err != nil {
		return nil, err
	}
	favs, err := s.Favorites(ctx, v)
	if err != nil {
		return nil, err
	}
	return &MyBooks{Posted: posted, Purchased: purchased, Favorites: favs}, nil
}

func (s *service) Favorites(ctx context.Context, v model.Viewer) ([]model.Listing, error) {
	rows, err := s.r.ListFavorites(ctx, v.UserID)
	if err != nil {
		return nil, err
	}
	return access.Visible(v, rows), nil
}

func (s *service) ListExclusive(ctx context.Context, v model.Viewer) ([]model.Listing, error) {
	all, err := s.r.ListExclusive(ctx)
	if err != nil {
		return nil, err
	}
	return access.Visible(v, all), nil
}

func (s *service) ownedExclusive(ctx context.Context, v model.Viewer, id int64) (*model.Listing, error) {
	l, err := s.owned(ctx, v, id)
	if err != nil {
		return nil, err
	}
	if l.Meta == nil {
		return nil, apperr.New(apperr.BadInput, "not_exclusive", "book is not exclusive")
	}
	return l, nil
}

func (s *service) Stats(ctx context.Context, v model.Viewer, id int64) (*model.ExclusiveStats, error) {
	l, err := s.ownedExclusive(ctx, v, id)
	if err != nil {
		return nil, err
	}
	return l.Meta.Stats(), nil
}

func (s *service) SetFeatured(ctx context.Context, v model.Viewer, id int64, featured bool) error {
	if _, err := s.ownedExclusive(ctx, v, id); err != nil {
		return err
	}
	err := s.r.SetFeatured(ctx, id, featured)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound()
	}
	return err
}
