package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListingJSON_HidesCounters(t *testing.T) {
	l := Listing{
		Book: Book{ID: 7, Exclusive: true},
		Meta: &ExclusiveMeta{BookID: 7, RequiredTier: TierGold, ViewsGold: 3, FavoritedSilver: 2, Featured: true},
	}
	raw, err := json.Marshal(l)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	meta, ok := out["exclusive"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, map[string]any{"required_tier": "Gold", "is_featured": true}, meta)
}

func TestExclusiveStats_CarriesCounters(t *testing.T) {
	m := &ExclusiveMeta{BookID: 7, RequiredTier: TierSilver, ViewsBronze: 1, FavoritedGold: 4}
	m.AddView("bronze")

	raw, err := json.Marshal(m.Stats())
	require.NoError(t, err)
	require.JSONEq(t, `{"book_id":7,"required_tier":"Silver","views_bronze":2,"views_silver":0,"views_gold":0,
		"favorited_bronze":0,"favorited_silver":0,"favorited_gold":4,"is_featured":false}`, string(raw))
}
