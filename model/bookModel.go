package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Web         string          `json:"web,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Exclusive   bool            `json:"is_exclusive"`
	OwnerID     *int64          `json:"owner_id,omitempty"`
	Quantity    int64           `json:"quantity"`
	CoverPath   string          `json:"cover_path,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
}

func (b Book) OwnedBy(userID int64) bool {
	return b.OwnerID != nil && *b.OwnerID == userID
}

// ExclusiveMeta exists exactly for books with Exclusive set. The per-tier
// counters never leave the server on a listing; owners read them via Stats.
type ExclusiveMeta struct {
	BookID          int64 `json:"-"`
	RequiredTier    Tier  `json:"required_tier"`
	ViewsBronze     int64 `json:"-"`
	ViewsSilver     int64 `json:"-"`
	ViewsGold       int64 `json:"-"`
	FavoritedBronze int64 `json:"-"`
	FavoritedSilver int64 `json:"-"`
	FavoritedGold   int64 `json:"-"`
	Featured        bool  `json:"is_featured"`
}

// ExclusiveStats is the owner's view of an exclusive book's counters.
type ExclusiveStats struct {
	BookID          int64 `json:"book_id"`
	RequiredTier    Tier  `json:"required_tier"`
	ViewsBronze     int64 `json:"views_bronze"`
	ViewsSilver     int64 `json:"views_silver"`
	ViewsGold       int64 `json:"views_gold"`
	FavoritedBronze int64 `json:"favorited_bronze"`
	FavoritedSilver int64 `json:"favorited_silver"`
	FavoritedGold   int64 `json:"favorited_gold"`
	Featured        bool  `json:"is_featured"`
}

func (m *ExclusiveMeta) Stats() *ExclusiveStats {
	st := ExclusiveStats(*m)
	return &st
}

func (m *ExclusiveMeta) AddView(bucket string) {
	switch bucket {
	case "bronze":
		m.ViewsBronze++
	case "silver":
		m.ViewsSilver++
	case "gold":
		m.ViewsGold++
	}
}

func (m *ExclusiveMeta) AddFavorite(bucket string) {
	switch bucket {
	case "bronze":
		m.FavoritedBronze++
	case "silver":
		m.FavoritedSilver++
	case "gold":
		m.FavoritedGold++
	}
}

// Listing is a book as the catalog returns it. AvgRating stays nil until the
// first rating exists.
type Listing struct {
	Book
	Meta         *ExclusiveMeta `json:"exclusive,omitempty"`
	AvgRating    *float64       `json:"avg_rating"`
	CommentCount int64          `json:"comment_count"`
}

type BookFilter struct {
	Query     string
	MinRating *float64
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Exclusive *bool
	Tier      Tier
}

type CounterKind string

const (
	CounterViews     CounterKind = "views"
	CounterFavorited CounterKind = "favorited"
)
