package simulation

import (
	"context"
	"runtime"
	"time"
)

const DefaultCoarseTimerThreshold = 20 * time.Millisecond

// Sleep waits for d. Waits longer than threshold go through a runtime timer,
// shorter ones poll the monotonic clock so sub-millisecond compression stays accurate.
func Sleep(ctx context.Context, d, threshold time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	if d > threshold {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return nil
}
