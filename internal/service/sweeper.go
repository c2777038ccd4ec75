package service

import (
	"context"
	"time"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/logger"
)

// Sweeper drives CloseExpired on a fixed interval. Deadlines live in the
// store, not in timers, so a restarted process picks overdue challenges up on
// its first tick, and extra replicas sweeping in parallel are harmless — the
// close transition itself is the mutual exclusion.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(svc *Service, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, log: log.With("component", "sweeper")}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.svc.CloseExpired(ctx)
			if err != nil {
				s.log.Error("sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info("sweep closed challenges", "count", n)
			}
		}
	}
}
