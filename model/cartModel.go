package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartLine struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	BookID     int64           `json:"book_id"`
	BookName   string          `json:"book_name,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	CheckedOut bool            `json:"checked_out"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	Lines []CartLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// ReturnRecord is an append-only return log row.
type ReturnRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	BookID     int64     `json:"book_id"`
	Quantity   int       `json:"quantity"`
	ReturnedAt time.Time `json:"returned_at"`
}
