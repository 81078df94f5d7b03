package book

import (
	"bookex/model"
	booksvc "bookex/service/book"

	"github.com/shopspring/decimal"
)

// BookReq is the create/update payload. Price accepts a JSON number or string.
type BookReq struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Web          string          `json:"web" validate:"omitempty,url"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int64           `json:"quantity" validate:"gte=0"`
	CoverPath    string          `json:"cover_path" validate:"max=500"`
	Exclusive    bool            `json:"is_exclusive"`
	RequiredTier string          `json:"required_tier" validate:"omitempty,oneof=Bronze Silver Silver+ Gold GoldOnly"`
}

func (r BookReq) input() booksvc.BookInput {
	return booksvc.BookInput{
		Name:         r.Name,
		Web:          r.Web,
		Price:        r.Price,
		Quantity:     r.Quantity,
		CoverPath:    r.CoverPath,
		Exclusive:    r.Exclusive,
		RequiredTier: model.Tier(r.RequiredTier),
	}
}

type FeaturedReq struct {
	Featured *bool `json:"is_featured" validate:"required"`
}
