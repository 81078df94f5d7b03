package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"bookex/model"
	profilerepo "bookex/repository/profile"
	walletrepo "bookex/repository/wallet"
	"bookex/util/apperr"
	"bookex/util/database"
	"bookex/util/metrics"

	"github.com/shopspring/decimal"
)

// BillingPeriod is the gap between two monthly deductions.
const BillingPeriod = 30 * 24 * time.Hour

var maxDeposit = decimal.NewFromInt(1_000_000)

type Outcome string

const (
	OutcomeSkipped    Outcome = "skipped"
	OutcomeCharged    Outcome = "charged"
	OutcomeDowngraded Outcome = "downgraded"
)

type TierChange struct {
	Profile *model.Profile  `json:"profile"`
	Charged decimal.Decimal `json:"charged"`
}

type Service interface {
	Profile(ctx context.Context, userID int64) (*model.Profile, error)
	// Resolve loads the caller's profile, settling a due monthly deduction
	// first so access checks never see a stale paid tier.
	Resolve(ctx context.Context, userID int64) (model.Viewer, error)

	ChangeTier(ctx context.Context, userID int64, tier model.Tier) (*TierChange, error)
	ApplyMonthlyDeduction(ctx context.Context, userID int64, today time.Time) (*model.Profile, Outcome, error)
	SweepDue(ctx context.Context, today time.Time) (int, error)

	ChangeRole(ctx context.Context, userID int64, role model.Role) (*model.Profile, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Profile, error)
	Ledger(ctx context.Context, userID int64) ([]model.LedgerEntry, error)
}

type service struct {
	tx       database.Transactor
	profiles profilerepo.Repo
	ledger   walletrepo.Repo
	log      *slog.Logger
	now      func() time.Time
}

func New(tx database.Transactor, profiles profilerepo.Repo, ledger walletrepo.Repo, log *slog.Logger) Service {
	return newService(tx, profiles, ledger, log)
}

func newService(tx database.Transactor, profiles profilerepo.Repo, ledger walletrepo.Repo, log *slog.Logger) *service {
	return &service{tx: tx, profiles: profiles, ledger: ledger, log: log, now: time.Now}
}

func errProfileNotFound() error {
	return apperr.New(apperr.NotFound, "profile_not_found", "profile not found")
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *service) today() time.Time { return dateOf(s.now()) }

// ----- pure rules -----

// applyTierChange mutates p for a move to target and returns the amount
// charged. On error p is left untouched.
func applyTierChange(p *model.Profile, target model.Tier, today time.Time) (decimal.Decimal, error) {
	if p.Role != model.RoleRegular {
		return decimal.Zero, apperr.New(apperr.Forbidden, "role_forbidden", "only regular users can subscribe")
	}
	if !target.Subscribable() {
		return decimal.Zero, apperr.New(apperr.BadInput, "invalid_tier", fmt.Sprintf("tier %q cannot be subscribed to", target))
	}
	if target == p.Tier {
		return decimal.Zero, apperr.New(apperr.Conflict, "same_tier", "already subscribed to this tier")
	}

	if target == model.TierFree {
		p.Tier = model.TierFree
		p.ClearSubscription()
		return decimal.Zero, nil
	}

	fee := target.MonthlyFee()
	if p.Balance.LessThan(fee) {
		return decimal.Zero, apperr.New(apperr.InsufficientFunds, "insufficient_funds",
			fmt.Sprintf("balance %s does not cover the %s fee of %s", p.Balance.StringFixed(2), target, fee.StringFixed(2)))
	}
	d := today
	p.Tier = target
	p.Balance = p.Balance.Sub(fee)
	p.SubscriptionStart = &d
	p.LastDeductionDate = &d
	return fee, nil
}

// lastBilled falls back to the subscription start, then to today.
func lastBilled(p *model.Profile, today time.Time) time.Time {
	switch {
	case p.LastDeductionDate != nil:
		return dateOf(*p.LastDeductionDate)
	case p.SubscriptionStart != nil:
		return dateOf(*p.SubscriptionStart)
	default:
		return today
	}
}

func isDue(p *model.Profile, today time.Time) bool {
	if p.Tier == model.TierFree {
		return false
	}
	return !today.Before(lastBilled(p, today).Add(BillingPeriod))
}

// monthlyDeduction mutates p and returns the outcome and the amount debited.
func monthlyDeduction(p *model.Profile, today time.Time) (Outcome, decimal.Decimal) {
	if !isDue(p, today) {
		return OutcomeSkipped, decimal.Zero
	}
	fee := p.Tier.MonthlyFee()
	if p.Balance.LessThan(fee) {
		p.Tier = model.TierFree
		p.ClearSubscription()
		return OutcomeDowngraded, decimal.Zero
	}
	d := today
	p.Balance = p.Balance.Sub(fee)
	p.LastDeductionDate = &d
	return OutcomeCharged, fee
}

// switchRole reports whether the tier was reset.
func switchRole(p *model.Profile, role model.Role) bool {
	p.Role = role
	if role == model.RoleRegular || p.Tier == model.TierFree {
		return false
	}
	p.Tier = model.TierFree
	p.ClearSubscription()
	return true
}

// ----- service -----

func (s *service) Profile(ctx context.Context, userID int64) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errProfileNotFound()
	}
	return p, nil
}

func (s *service) Resolve(ctx context.Context, userID int64) (model.Viewer, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return model.Anonymous(), err
	}
	if p == nil {
		return model.Anonymous(), apperr.New(apperr.Unauthenticated, "unknown_user", "account no longer exists")
	}
	today := s.today()
	if isDue(p, today) {
		if p, _, err = s.ApplyMonthlyDeduction(ctx, userID, today); err != nil {
			return model.Anonymous(), err
		}
	}
	return model.NewViewer(p), nil
}

func (s *service) ChangeTier(ctx context.Context, userID int64, tier model.Tier) (*TierChange, error) {
	var out *TierChange
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		p, err := s.profiles.LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return errProfileNotFound()
		}

		charged, err := applyTierChange(p, tier, s.today())
		if err != nil {
			return err
		}
		if err := s.profiles.Save(ctx, tx, p); err != nil {
			return err
		}

		entry := &model.LedgerEntry{
			UserID:       userID,
			EntryType:    model.LedgerTierCharge,
			Tier:         p.Tier,
			Amount:       charged.Neg(),
			BalanceAfter: p.Balance,
		}
		if p.Tier == model.TierFree {
			entry.EntryType = model.LedgerDowngrade
		}
		if err := s.ledger.InsertLedger(ctx, tx, entry); err != nil {
			return err
		}
		out = &TierChange{Profile: p, Charged: charged}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.InsufficientFunds) {
			metrics.BillingEvents.WithLabelValues("tier_change", "rejected").Inc()
		}
		return nil, err
	}
	outcome := OutcomeCharged
	if out.Profile.Tier == model.TierFree {
		outcome = OutcomeDowngraded
	}
	metrics.BillingEvents.WithLabelValues("tier_change", string(outcome)).Inc()
	return out, nil
}

func (s *service) ApplyMonthlyDeduction(ctx context.Context, userID int64, today time.Time) (*model.Profile, Outcome, error) {
	today = dateOf(today)
	var (
		prof    *model.Profile
		outcome Outcome
	)
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		p, err := s.profiles.LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return errProfileNotFound()
		}
		prof = p

		prevTier := p.Tier
		var fee decimal.Decimal
		outcome, fee = monthlyDeduction(p, today)
		if outcome == OutcomeSkipped {
			return nil
		}
		if err := s.profiles.Save(ctx, tx, p); err != nil {
			return err
		}

		entry := &model.LedgerEntry{
			UserID:       userID,
			EntryType:    model.LedgerMonthlyCharge,
			Tier:         prevTier,
			Amount:       fee.Neg(),
			BalanceAfter: p.Balance,
		}
		if outcome == OutcomeDowngraded {
			entry.EntryType = model.LedgerDowngrade
			entry.Amount = decimal.Zero
		}
		return s.ledger.InsertLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, "", err
	}
	metrics.BillingEvents.WithLabelValues("monthly_deduction", string(outcome)).Inc()
	return prof, outcome, nil
}

// SweepDue settles every profile whose deduction is due on today. A failure
// on one user is logged and does not stop the sweep.
func (s *service) SweepDue(ctx context.Context, today time.Time) (int, error) {
	today = dateOf(today)
	ids, err := s.profiles.ListDue(ctx, today.Add(-BillingPeriod))
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		_, outcome, err := s.ApplyMonthlyDeduction(ctx, id, today)
		if err != nil {
			s.log.Error("monthly deduction failed", "user_id", id, "err", err)
			continue
		}
		if outcome != OutcomeSkipped {
			settled++
		}
	}
	return settled, nil
}

func (s *service) ChangeRole(ctx context.Context, userID int64, role model.Role) (*model.Profile, error) {
	if _, ok := model.ParseRole(string(role)); !ok {
		return nil, apperr.New(apperr.BadInput, "invalid_role", fmt.Sprintf("unknown role %q", role))
	}

	var out *model.Profile
	reset := false
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		p, err := s.profiles.LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return errProfileNotFound()
		}
		out = p
		if p.Role == role {
			return nil
		}

		prevTier := p.Tier
		reset = switchRole(p, role)
		if err := s.profiles.Save(ctx, tx, p); err != nil {
			return err
		}
		if !reset {
			return nil
		}
		return s.ledger.InsertLedger(ctx, tx, &model.LedgerEntry{
			UserID:       userID,
			EntryType:    model.LedgerDowngrade,
			Tier:         prevTier,
			Amount:       decimal.Zero,
			BalanceAfter: p.Balance,
		})
	})
	if err != nil {
		return nil, err
	}
	if reset {
		metrics.BillingEvents.WithLabelValues("role_change", "reset").Inc()
	}
	return out, nil
}

func (s *service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Profile, error) {
	if !amount.IsPositive() || amount.GreaterThan(maxDeposit) || !amount.Equal(amount.Round(2)) {
		return nil, apperr.New(apperr.BadInput, "invalid_amount", "amount must be positive with at most two decimals")
	}

	var out *model.Profile
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		p, err := s.profiles.LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return errProfileNotFound()
		}
		p.Balance = p.Balance.Add(amount)
		if err := s.profiles.Save(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return s.ledger.InsertLedger(ctx, tx, &model.LedgerEntry{
			UserID:       userID,
			EntryType:    model.LedgerDeposit,
			Tier:         p.Tier,
			Amount:       amount,
			BalanceAfter: p.Balance,
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.BillingEvents.WithLabelValues("deposit", "credited").Inc()
	return out, nil
}

func (s *service) Ledger(ctx context.Context, userID int64) ([]model.LedgerEntry, error) {
	return s.ledger.ListLedger(ctx, userID)
}
