package subscription

import (
	"context"
	"time"
)

// Sweeper settles every due monthly deduction in one pass.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type sweeper struct {
	s   Service
	now func() time.Time
}

func NewSweeper(s Service) Sweeper { return &sweeper{s: s, now: time.Now} }

func (w *sweeper) Sweep(ctx context.Context) (int, error) {
	return w.s.SweepDue(ctx, w.now().UTC())
}
