package media

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// usageReconciler is the slice of the ledger the reconciler drives.
type usageReconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Reconciler periodically recomputes committed usage from asset records and
// repairs counters that drifted from partial failures.
type Reconciler struct {
	ledger   usageReconciler
	interval time.Duration
	logger   *zap.Logger
}

func NewReconciler(ledger usageReconciler, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{ledger: ledger, interval: interval, logger: logger}
}

// Run blocks until ctx is canceled, reconciling on every tick.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("quota reconciler started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("quota reconciler stopped")
			return
		case <-ticker.C:
			corrected, err := r.ledger.Reconcile(ctx)
			if err != nil {
				r.logger.Error("reconciliation failed", zap.Error(err))
				continue
			}
			if corrected > 0 {
				r.logger.Warn("reconciliation corrected drifted accounts", zap.Int("count", corrected))
			}
		}
	}
}
