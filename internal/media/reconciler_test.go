package media

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type flakyReconciler struct {
	calls atomic.Int64
}

func (f *flakyReconciler) Reconcile(context.Context) (int, error) {
	n := f.calls.Add(1)
	if n == 1 {
		return 0, errors.New("transient")
	}
	return 2, nil
}

func TestReconcilerSurvivesFailedPass(t *testing.T) {
	ledger := &flakyReconciler{}
	reconciler := NewReconciler(ledger, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reconciler.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for ledger.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("reconciler stopped after a failure; calls=%d", ledger.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("reconciler did not stop after cancel")
	}
}
