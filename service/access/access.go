// Package access decides whether a viewer may see a book. It has no side
// effects; billing lives in the subscription service.
package access

import (
	"bookex/model"
	"bookex/util/apperr"
)

type Reason string

const (
	ReasonLoginRequired Reason = "login_required"
	ReasonRoleForbidden Reason = "role_forbidden"
	ReasonTierTooLow    Reason = "tier_too_low"
	// ReasonPaused is a subscriber whose balance no longer covers their
	// tier's fee, as opposed to one who never subscribed high enough.
	ReasonPaused Reason = "subscription_paused"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

func allow() Decision           { return Decision{Allowed: true} }
func deny(r Reason) Decision    { return Decision{Reason: r} }
func (d Decision) Denied() bool { return !d.Allowed }

// Err converts a denial into the coded error controllers understand.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonLoginRequired:
		return apperr.New(apperr.Unauthenticated, string(d.Reason), "login required to view this book")
	case d.Reason == ReasonPaused:
		return apperr.New(apperr.Forbidden, string(d.Reason), "subscription paused: balance does not cover the monthly fee")
	default:
		return apperr.New(apperr.Forbidden, string(d.Reason), "your subscription does not include this book")
	}
}

// requiredTier falls back to the highest rank when an exclusive book has no
// metadata row.
func requiredTier(meta *model.ExclusiveMeta) model.Tier {
	if meta == nil || !meta.RequiredTier.Valid() {
		return model.TierGoldOnly
	}
	return meta.RequiredTier
}

func CanView(v model.Viewer, b model.Book, meta *model.ExclusiveMeta) Decision {
	if !b.Exclusive {
		return allow()
	}
	if !v.Authenticated() {
		return deny(ReasonLoginRequired)
	}
	p := v.Profile
	switch p.Role {
	case model.RoleWriter:
		return allow()
	case model.RoleRegular:
	default:
		return deny(ReasonRoleForbidden)
	}

	if p.Tier.Rank() < requiredTier(meta).Rank() {
		return deny(ReasonTierTooLow)
	}
	if p.Balance.LessThan(p.Tier.MonthlyFee()) {
		return deny(ReasonPaused)
	}
	return allow()
}

// Visible keeps the listings the viewer may see, preserving order.
func Visible(v model.Viewer, in []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if CanView(v, l.Book, l.Meta).Allowed {
			out = append(out, l)
		}
	}
	return out
}
