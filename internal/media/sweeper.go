package media

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// expiryReleaser is the slice of the ledger the sweeper drives.
type expiryReleaser interface {
	ReleaseExpired(ctx context.Context) (int, error)
}

// Sweeper periodically releases reservations whose upload window elapsed,
// returning their estimated bytes to the account's available capacity.
type Sweeper struct {
	ledger   expiryReleaser
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(ledger expiryReleaser, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{ledger: ledger, interval: interval, logger: logger}
}

// Run blocks until ctx is canceled, sweeping on every tick. One sweep failure
// is logged and the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reservation sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			released, err := s.ledger.ReleaseExpired(ctx)
			if err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				s.logger.Info("released expired reservations", zap.Int("count", released))
			}
		}
	}
}
