package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTierRank(t *testing.T) {
	cases := map[Tier]int{
		TierFree:       0,
		TierBronze:     1,
		TierSilver:     2,
		TierSilverPlus: 2,
		TierGold:       3,
		TierGoldOnly:   3,
		Tier("Platin"): -1,
	}
	for tier, want := range cases {
		require.Equal(t, want, tier.Rank(), string(tier))
	}
}

func TestTierFees(t *testing.T) {
	require.True(t, TierFree.MonthlyFee().IsZero())
	require.True(t, TierBronze.MonthlyFee().Equal(decimal.RequireFromString("20.00")))
	require.True(t, TierSilver.MonthlyFee().Equal(decimal.RequireFromString("45.00")))
	require.True(t, TierSilverPlus.MonthlyFee().Equal(TierSilver.MonthlyFee()))
	require.True(t, TierGold.MonthlyFee().Equal(decimal.RequireFromString("80.00")))
	require.True(t, TierGoldOnly.MonthlyFee().Equal(TierGold.MonthlyFee()))
}

func TestTierSubscribable(t *testing.T) {
	for _, tier := range SubscribableTiers() {
		require.True(t, tier.Subscribable(), string(tier))
	}
	require.False(t, TierSilverPlus.Subscribable())
	require.False(t, TierGoldOnly.Subscribable())
	require.False(t, Tier("").Subscribable())
}

func TestTiersAreRankOrdered(t *testing.T) {
	all := Tiers()
	for i := 1; i < len(all); i++ {
		require.GreaterOrEqual(t, all[i].Rank(), all[i-1].Rank())
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("Writer")
	require.True(t, ok)
	require.Equal(t, RoleWriter, r)

	_, ok = ParseRole("admin")
	require.False(t, ok)
}

func TestBucket(t *testing.T) {
	require.Equal(t, "", TierFree.Bucket())
	require.Equal(t, "silver", TierSilverPlus.Bucket())
	require.Equal(t, "gold", TierGoldOnly.Bucket())
}
