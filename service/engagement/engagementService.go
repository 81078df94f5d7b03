package engagement

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"bookex/model"
	engagementrepo "bookex/repository/engagement"
	"bookex/util/apperr"
)

const maxCommentLen = 2000

// Catalog is the part of the book service engagement depends on: a viewer
// can only rate, comment on or favorite a book they can see.
type Catalog interface {
	Viewable(ctx context.Context, v model.Viewer, id int64) (*model.Listing, error)
	RecordFavorite(ctx context.Context, v model.Viewer, l *model.Listing)
}

type Service interface {
	Rate(ctx context.Context, v model.Viewer, bookID int64, rating int) error
	AddComment(ctx context.Context, v model.Viewer, bookID int64, content string) (*model.Comment, error)
	EditComment(ctx context.Context, v model.Viewer, commentID int64, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, v model.Viewer, commentID int64) error
	Comments(ctx context.Context, v model.Viewer, bookID int64) ([]model.Comment, error)
	ToggleFavorite(ctx context.Context, v model.Viewer, bookID int64) (bool, error)
}

type service struct {
	r       engagementrepo.Repo
	catalog Catalog
}

func New(r engagementrepo.Repo, catalog Catalog) Service {
	return &service{r: r, catalog: catalog}
}

func cleanContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.New(apperr.BadInput, "invalid_comment", "comment must not be empty")
	}
	if utf8.RuneCountInString(s) > maxCommentLen {
		return "", apperr.New(apperr.BadInput, "invalid_comment", "comment is too long")
	}
	return s, nil
}

func (s *service) Rate(ctx context.Context, v model.Viewer, bookID int64, rating int) error {
	if rating < 1 || rating > 5 {
		return apperr.New(apperr.BadInput, "invalid_rating", "rating must be between 1 and 5")
	}
	if _, err := s.catalog.Viewable(ctx, v, bookID); err != nil {
		return err
	}
	return s.r.UpsertRating(ctx, v.UserID, bookID, rating)
}

func (s *service) AddComment(ctx context.Context, v model.Viewer, bookID int64, content string) (*model.Comment, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.Viewable(ctx, v, bookID); err != nil {
		return nil, err
	}
	c := &model.Comment{BookID: bookID, UserID: v.UserID, Content: content}
	if v.Profile != nil {
		c.Username = v.Profile.Username
	}
	if err := s.r.InsertComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// authored loads a comment and checks v wrote it.
func (s *service) authored(ctx context.Context, v model.Viewer, id int64) (*model.Comment, error) {
	c, err := s.r.CommentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.NotFound, "comment_not_found", "comment not found")
	}
	if c.UserID != v.UserID {
		return nil, apperr.New(apperr.Forbidden, "not_author", "only the author can change this comment")
	}
	return c, nil
}

func (s *service) EditComment(ctx context.Context, v model.Viewer, id int64, content string) (*model.Comment, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.authored(ctx, v, id); err != nil {
		return nil, err
	}
	c, err := s.r.UpdateComment(ctx, id, content)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && c == nil) {
		return nil, apperr.New(apperr.NotFound, "comment_not_found", "comment not found")
	}
	return c, err
}

func (s *service) DeleteComment(ctx context.Context, v model.Viewer, id int64) error {
	if _, err := s.authored(ctx, v, id); err != nil {
		return err
	}
	err := s.r.DeleteComment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (s *service) Comments(ctx context.Context, v model.Viewer, bookID int64) ([]model.Comment, error) {
	if _, err := s.catalog.Viewable(ctx, v, bookID); err != nil {
		return nil, err
	}
	return s.r.ListComments(ctx, bookID)
}

func (s *service) ToggleFavorite(ctx context.Context, v model.Viewer, bookID int64) (bool, error) {
	l, err := s.catalog.Viewable(ctx, v, bookID)
	if err != nil {
		return false, err
	}
	on, err := s.r.ToggleFavorite(ctx, v.UserID, bookID)
	if err != nil {
		return false, err
	}
	if on {
		s.catalog.RecordFavorite(ctx, v, l)
	}
	return on, nil
}
