package crawler

import (
	"context"
	"time"
)

// Pauser abstracts the fixed politeness delay between platform calls.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// TimerPauser sleeps for the delay or until ctx is cancelled.
type TimerPauser struct{}

// Pause blocks for delay. Non-positive delays return immediately.
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

// PauseFunc adapts a function to Pauser.
type PauseFunc func(ctx context.Context, delay time.Duration)

// Pause calls f.
func (f PauseFunc) Pause(ctx context.Context, delay time.Duration) {
	f(ctx, delay)
}
