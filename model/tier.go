package model

import "github.com/shopspring/decimal"

// Tier is a subscription level. The set is closed: ranks and fees come from
// switch statements, not from a mutable lookup table.
type Tier string

const (
	TierFree       Tier = "Free"
	TierBronze     Tier = "Bronze"
	TierSilver     Tier = "Silver"
	TierSilverPlus Tier = "Silver+"
	TierGold       Tier = "Gold"
	TierGoldOnly   Tier = "GoldOnly"
)

var (
	feeBronze = decimal.New(2000, -2)
	feeSilver = decimal.New(4500, -2)
	feeGold   = decimal.New(8000, -2)
)

// Tiers lists every tier in rank order.
func Tiers() []Tier {
	return []Tier{TierFree, TierBronze, TierSilver, TierSilverPlus, TierGold, TierGoldOnly}
}

// SubscribableTiers lists the tiers a user can hold.
func SubscribableTiers() []Tier {
	return []Tier{TierFree, TierBronze, TierSilver, TierGold}
}

func ParseTier(s string) (Tier, bool) {
	t := Tier(s)
	return t, t.Valid()
}

func (t Tier) Valid() bool { return t.Rank() >= 0 }

// Rank orders tiers for access checks. Silver+ and GoldOnly share the rank of
// their base tier. Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierBronze:
		return 1
	case TierSilver, TierSilverPlus:
		return 2
	case TierGold, TierGoldOnly:
		return 3
	default:
		return -1
	}
}

// Base maps the book-only tiers onto the tier a user subscribes to.
func (t Tier) Base() Tier {
	switch t {
	case TierSilverPlus:
		return TierSilver
	case TierGoldOnly:
		return TierGold
	default:
		return t
	}
}

func (t Tier) MonthlyFee() decimal.Decimal {
	switch t.Base() {
	case TierBronze:
		return feeBronze
	case TierSilver:
		return feeSilver
	case TierGold:
		return feeGold
	default:
		return decimal.Zero
	}
}

// Subscribable reports whether a user profile may hold this tier.
func (t Tier) Subscribable() bool {
	return t.Valid() && t.Base() == t
}

// Bucket names the stats column group for the tier ("" for Free/unknown).
func (t Tier) Bucket() string {
	switch t.Base() {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	default:
		return ""
	}
}

type Role string

const (
	RoleRegular   Role = "Regular"
	RolePublisher Role = "Publisher"
	RoleWriter    Role = "Writer"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleRegular, RolePublisher, RoleWriter:
		return r, true
	default:
		return "", false
	}
}
