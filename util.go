package autopacket

import (
	"context"
	"time"
)

// pollUntilZero backs off geometrically while waiting for count() to reach
// zero. Only used by ObjectPool.Rundown on unbounded pools, where there is
// no semaphore to block on directly.
func pollUntilZero(ctx context.Context, count func() int) error {
	delay := time.Millisecond
	const maxDelay = 50 * time.Millisecond
	for count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < maxDelay {
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}
	return nil
}
