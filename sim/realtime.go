package sim

import (
	"context"
	"fmt"
	"time"
)

// RunRealTime feeds target the wall-clock seconds elapsed since the call,
// once immediately and then every interval, until ctx is done. It returns
// nil on cancellation and the first Step error otherwise.
func RunRealTime(ctx context.Context, interval time.Duration, target Steppable) error {
	if interval <= 0 {
		return fmt.Errorf("real-time interval %s: must be positive", interval)
	}
	start := time.Now()
	if err := target.Step(0); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := target.Step(now.Sub(start).Seconds()); err != nil {
				return err
			}
		}
	}
}
