package crawler

import (
	"context"
	"time"
)

// TimerPauser implements Pauser with a context-aware timer. The pause is
// inert: it signals nothing and retries nothing.
type TimerPauser struct{}

// Pause blocks for delay or until the context finishes.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
