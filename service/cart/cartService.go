package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookex/model"
	cartrepo "bookex/repository/cart"
	"bookex/util/apperr"
	"bookex/util/database"
	"bookex/util/metrics"

	"github.com/shopspring/decimal"
)

const maxLineQuantity = 99

type CheckoutResult struct {
	Lines int64           `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

type Service interface {
	Add(ctx context.Context, userID, bookID int64) (*model.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, lineID int64, qty int) error
	Cancel(ctx context.Context, userID, lineID int64) error
	List(ctx context.Context, userID int64) (*model.Cart, error)

	// Checkout flips every open line to checked out and takes the stock, or
	// changes nothing. A second call affects zero lines.
	Checkout(ctx context.Context, userID int64) (*CheckoutResult, error)

	Return(ctx context.Context, userID, bookID int64, qty int) (*model.ReturnRecord, error)
	AvailableToReturn(ctx context.Context, userID, bookID int64) (int, error)
	Returns(ctx context.Context, userID int64) ([]model.ReturnRecord, error)
}

type service struct {
	tx database.Transactor
	r  cartrepo.Repo
}

func New(tx database.Transactor, r cartrepo.Repo) Service {
	return &service{tx: tx, r: r}
}

func errBookNotFound() error {
	return apperr.New(apperr.NotFound, "book_not_found", "book not found")
}

func (s *service) Add(ctx context.Context, userID, bookID int64) (*model.CartLine, error) {
	exists, err := s.r.BookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errBookNotFound()
	}
	l, err := s.r.AddLine(ctx, userID, bookID, maxLineQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.Conflict, "quantity_limit",
			fmt.Sprintf("a cart line holds at most %d copies", maxLineQuantity))
	}
	return l, err
}

// ownOpenLine checks the line belongs to userID and is still editable.
func (s *service) ownOpenLine(ctx context.Context, userID, lineID int64) error {
	owner, done, err := s.r.LineOwner(ctx, lineID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.NotFound, "line_not_found", "cart line not found")
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return apperr.New(apperr.Forbidden, "not_owner", "cart line belongs to another user")
	}
	if done {
		return apperr.New(apperr.Conflict, "line_checked_out", "cart line is already checked out")
	}
	return nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, lineID int64, qty int) error {
	if qty < 1 || qty > maxLineQuantity {
		return apperr.New(apperr.BadInput, "invalid_quantity", fmt.Sprintf("quantity must be between 1 and %d", maxLineQuantity))
	}
	if err := s.ownOpenLine(ctx, userID, lineID); err != nil {
		return err
	}
	return s.r.SetQuantity(ctx, lineID, qty)
}

func (s *service) Cancel(ctx context.Context, userID, lineID int64) error {
	if err := s.ownOpenLine(ctx, userID, lineID); err != nil {
		return err
	}
	return s.r.DeleteLine(ctx, lineID)
}

func total(lines []model.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

func (s *service) List(ctx context.Context, userID int64) (*model.Cart, error) {
	lines, err := s.r.ListOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Cart{Lines: lines, Total: total(lines)}, nil
}

func (s *service) Checkout(ctx context.Context, userID int64) (*CheckoutResult, error) {
	var out CheckoutResult
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		lines, err := s.r.LockOpenLines(ctx, tx, userID)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ID)
			ok, err := s.r.DecrementStock(ctx, tx, l.BookID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.New(apperr.Conflict, "out_of_stock",
					fmt.Sprintf("not enough copies of %q in stock", l.BookName))
			}
		}
		n, err := s.r.MarkCheckedOut(ctx, tx, ids)
		if err != nil {
			return err
		}
		out = CheckoutResult{Lines: n, Total: total(lines)}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			metrics.FulfillmentEvents.WithLabelValues("checkout", "out_of_stock").Inc()
		}
		return nil, err
	}
	if out.Lines == 0 {
		metrics.FulfillmentEvents.WithLabelValues("checkout", "empty").Inc()
	} else {
		metrics.FulfillmentEvents.WithLabelValues("checkout", "ok").Inc()
	}
	return &out, nil
}

// Return re-reads the net purchased count under the book row lock so two
// concurrent returns cannot both pass the check.
func (s *service) Return(ctx context.Context, userID, bookID int64, qty int) (*model.ReturnRecord, error) {
	if qty <= 0 {
		return nil, apperr.New(apperr.BadInput, "invalid_quantity", "quantity must be positive")
	}

	var rec *model.ReturnRecord
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		found, err := s.r.LockBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !found {
			return errBookNotFound()
		}

		net, err := s.r.NetPurchased(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if qty > net {
			return apperr.New(apperr.Conflict, "exceeds_purchased",
				fmt.Sprintf("only %d copies can be returned", net))
		}

		if err := s.r.IncrementStock(ctx, tx, bookID, qty); err != nil {
			return err
		}
		rec = &model.ReturnRecord{UserID: userID, BookID: bookID, Quantity: qty}
		return s.r.InsertReturn(ctx, tx, rec)
	})
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			metrics.FulfillmentEvents.WithLabelValues("return", "rejected").Inc()
		}
		return nil, err
	}
	metrics.FulfillmentEvents.WithLabelValues("return", "ok").Inc()
	return rec, nil
}

func (s *service) AvailableToReturn(ctx context.Context, userID, bookID int64) (int, error) {
	exists, err := s.r.BookExists(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errBookNotFound()
	}
	return s.r.NetPurchased(ctx, nil, userID, bookID)
}

func (s *service) Returns(ctx context.Context, userID int64) ([]model.ReturnRecord, error) {
	return s.r.ListReturns(ctx, userID)
}
