package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reconciler rebuilds every creator's usage counters from the submissions table.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// ReconcileCounters runs one reconciliation pass. A failure for a single
// creator is logged by the reconciler and does not stop the pass.
func ReconcileCounters(ctx context.Context, r Reconciler, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := r.ReconcileAll(ctx)
	if err != nil {
		log.Error().Err(err).Int("profiles", n).Msg("counter reconciliation failed")
		return err
	}

	log.Info().
		Int("profiles", n).
		Dur("elapsed", time.Since(start)).
		Msg("counter reconciliation finished")
	return nil
}
