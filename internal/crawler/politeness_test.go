package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPauserHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	TimerPauser{}.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second, "pause should exit immediately when context is done")
}

func TestTimerPauserZeroDelay(t *testing.T) {
	start := time.Now()
	TimerPauser{}.Pause(context.Background(), 0)
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPauseFuncRecordsDelay(t *testing.T) {
	var got []time.Duration
	p := PauseFunc(func(_ context.Context, d time.Duration) { got = append(got, d) })
	p.Pause(context.Background(), time.Second)
	p.Pause(context.Background(), 2*time.Second)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, got)
}
