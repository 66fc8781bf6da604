package reconcile

import (
	"context"
	"time"
)

// pacer enforces a fixed minimum spacing between successive remote
// write calls. The remote API throttles bursts; a plain blocking wait
// is the contract here, not a token bucket.
type pacer struct {
	interval time.Duration
	last     time.Time
}

// wait blocks until at least interval has passed since the previous
// call, honoring context cancellation.
func (p *pacer) wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}
	if !p.last.IsZero() {
		remaining := p.interval - time.Since(p.last)
		if remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}
