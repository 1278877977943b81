package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPauser_WaitsFullDelay(t *testing.T) {
	t.Parallel()

	p := &TimerPauser{}
	start := time.Now()
	p.Pause(context.Background(), 50*time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTimerPauser_ReturnsOnCancel(t *testing.T) {
	t.Parallel()

	p := &TimerPauser{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	p.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second)
}
