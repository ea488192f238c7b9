package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/sagarc03/boxgate"
)

// RunSweeper removes expired counters from store every interval until ctx is
// done. Expired counters already read as zero, so sweeping only bounds
// storage. A non-positive interval disables the sweeper.
func RunSweeper(ctx context.Context, store boxgate.CounterStore, interval time.Duration) {
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
			removed, err := store.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.WarnContext(ctx, "sweep rate limit counters", "err", err)
				continue
			}
			if removed > 0 {
				slog.DebugContext(ctx, "swept rate limit counters", "removed", removed)
			}
		}
	}
}
