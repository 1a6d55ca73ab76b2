package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTarget struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingTarget) Refresh(ctx context.Context) error {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.err
}

func waitForCalls(t *testing.T, target *countingTarget, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if target.calls.Load() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("refresh called %d times, wanted at least %d", target.calls.Load(), want)
}

func TestRefresher_RefreshesImmediatelyAndOnTick(t *testing.T) {
	target := &countingTarget{}
	r := NewRefresher(target, 30*time.Millisecond, time.Second, zap.NewNop())

	r.Start(context.Background())
	defer r.Stop()

	waitForCalls(t, target, 3)
	assert.False(t, r.LastAttempt().IsZero())
	assert.False(t, r.LastSuccess().IsZero())
}

func TestRefresher_SkipsTickWhileInFlight(t *testing.T) {
	// Refresh takes ten intervals; overlapping ticks must be skipped, not
	// queued behind it.
	target := &countingTarget{delay: 200 * time.Millisecond}
	r := NewRefresher(target, 20*time.Millisecond, time.Second, zap.NewNop())

	r.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	r.Stop()

	assert.Equal(t, int32(1), target.calls.Load())
}

func TestRefresher_FailureKeepsTicking(t *testing.T) {
	target := &countingTarget{err: errors.New("feed down")}
	r := NewRefresher(target, 30*time.Millisecond, time.Second, zap.NewNop())

	r.Start(context.Background())
	defer r.Stop()

	waitForCalls(t, target, 2)
	assert.False(t, r.LastAttempt().IsZero())
	assert.True(t, r.LastSuccess().IsZero())
}

func TestRefresher_StopIsIdempotent(t *testing.T) {
	target := &countingTarget{}
	r := NewRefresher(target, time.Hour, time.Second, zap.NewNop())

	r.Start(context.Background())
	waitForCalls(t, target, 1)

	r.Stop()
	r.Stop()
}

func TestRefresher_ContextCancelStopsLoop(t *testing.T) {
	target := &countingTarget{}
	r := NewRefresher(target, 20*time.Millisecond, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	waitForCalls(t, target, 1)
	cancel()

	time.Sleep(60 * time.Millisecond)
	after := target.calls.Load()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, after, target.calls.Load())
}
