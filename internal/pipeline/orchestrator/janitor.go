package orchestrator

import (
	"context"
	"time"
)

// RunJanitor expires cache entries, idle rate windows and idle session
// histories every interval until ctx is cancelled.
func (o *Orchestrator) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep(ctx)
		}
	}
}

func (o *Orchestrator) sweep(ctx context.Context) {
	expired := o.deps.Cache.Cleanup(ctx)
	idle := o.deps.Validator.Cleanup(ctx)
	pruned := o.deps.History.Prune(o.now().UTC().Add(-o.deps.HistoryIdleTTL))
	if expired > 0 || idle > 0 || pruned > 0 {
		o.logger.Debug("janitor sweep", map[string]interface{}{
			"expiredEntries": expired,
			"idleSessions":   idle,
			"prunedHistory":  pruned,
		})
	}
}
