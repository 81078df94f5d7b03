package access

import (
	"testing"

	"bookex/model"
	"bookex/util/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func viewer(role model.Role, tier model.Tier, balance string) model.Viewer {
	return model.NewViewer(&model.Profile{
		UserID:  7,
		Role:    role,
		Tier:    tier,
		Balance: decimal.RequireFromString(balance),
	})
}

func exclusive(tier model.Tier) (model.Book, *model.ExclusiveMeta) {
	return model.Book{ID: 1, Exclusive: true}, &model.ExclusiveMeta{BookID: 1, RequiredTier: tier}
}

func TestCanView_NonExclusiveIsPublic(t *testing.T) {
	d := CanView(model.Anonymous(), model.Book{ID: 1}, nil)
	require.True(t, d.Allowed)
	require.NoError(t, d.Err())
}

func TestCanView_Anonymous(t *testing.T) {
	b, m := exclusive(model.TierBronze)
	d := CanView(model.Anonymous(), b, m)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonLoginRequired, d.Reason)
	require.Equal(t, apperr.Unauthenticated, apperr.CodeOf(d.Err()))
}

func TestCanView_WriterSeesEverything(t *testing.T) {
	b, m := exclusive(model.TierGoldOnly)
	require.True(t, CanView(viewer(model.RoleWriter, model.TierFree, "0"), b, m).Allowed)
}

func TestCanView_PublisherDenied(t *testing.T) {
	b, m := exclusive(model.TierBronze)
	d := CanView(viewer(model.RolePublisher, model.TierGold, "500"), b, m)
	require.Equal(t, ReasonRoleForbidden, d.Reason)
	require.Equal(t, apperr.Forbidden, apperr.CodeOf(d.Err()))
}

func TestCanView_TierRanks(t *testing.T) {
	cases := []struct {
		user, book model.Tier
		allowed    bool
	}{
		{model.TierFree, model.TierBronze, false},
		{model.TierBronze, model.TierBronze, true},
		{model.TierBronze, model.TierSilver, false},
		{model.TierSilver, model.TierSilverPlus, true},
		{model.TierSilver, model.TierGold, false},
		{model.TierGold, model.TierGoldOnly, true},
		{model.TierGold, model.TierSilverPlus, true},
	}
	for _, tc := range cases {
		b, m := exclusive(tc.book)
		d := CanView(viewer(model.RoleRegular, tc.user, "1000"), b, m)
		require.Equal(t, tc.allowed, d.Allowed, "%s -> %s", tc.user, tc.book)
		if !tc.allowed {
			require.Equal(t, ReasonTierTooLow, d.Reason)
		}
	}
}

func TestCanView_PausedWhenBalanceBelowFee(t *testing.T) {
	b, m := exclusive(model.TierSilver)
	d := CanView(viewer(model.RoleRegular, model.TierSilver, "44.99"), b, m)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonPaused, d.Reason)
	require.Equal(t, "subscription_paused", apperr.ReasonOf(d.Err()))

	require.True(t, CanView(viewer(model.RoleRegular, model.TierSilver, "45.00"), b, m).Allowed)
}

func TestCanView_MissingMetaRequiresTopRank(t *testing.T) {
	b := model.Book{ID: 1, Exclusive: true}
	require.Equal(t, ReasonTierTooLow, CanView(viewer(model.RoleRegular, model.TierSilver, "100"), b, nil).Reason)
	require.True(t, CanView(viewer(model.RoleRegular, model.TierGold, "100"), b, nil).Allowed)
}

func TestVisible(t *testing.T) {
	b, m := exclusive(model.TierGold)
	in := []model.Listing{
		{Book: model.Book{ID: 1}},
		{Book: b, Meta: m},
		{Book: model.Book{ID: 3}},
	}
	out := Visible(model.Anonymous(), in)
	require.Len(t, out, 2)
	require.Equal(t, int64(1), out[0].ID)
	require.Equal(t, int64(3), out[1].ID)

	require.Len(t, Visible(viewer(model.RoleWriter, model.TierFree, "0"), in), 3)
}
