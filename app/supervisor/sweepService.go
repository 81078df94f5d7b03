package supervisor

import (
	"context"
	"log/slog"
	"time"

	"bookex/service/subscription"
)

// SweepService runs the billing sweep on a fixed interval, once right after
// start. A failed pass is logged and retried on the next tick.
type SweepService struct {
	sweeper  subscription.Sweeper
	interval time.Duration
	log      *slog.Logger
}

func NewSweepService(s subscription.Sweeper, interval time.Duration, log *slog.Logger) *SweepService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SweepService{sweeper: s, interval: interval, log: log}
}

func (s *SweepService) Serve(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *SweepService) runOnce(ctx context.Context) {
	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("billing sweep failed", "err", err)
		}
		return
	}
	if n > 0 {
		s.log.Info("billing sweep", "settled", n)
	}
}

func (s *SweepService) String() string { return "billing-sweep" }
