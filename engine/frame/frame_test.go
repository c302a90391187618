package frame

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every reading and records sleeps.
type fakeClock struct {
	t      time.Time
	step   time.Duration
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

type countingRunner struct {
	polls int
	limit int
}

func (r *countingRunner) PollEvents() bool {
	r.polls++
	return r.polls <= r.limit
}

func TestLoopDeltas(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 16 * time.Millisecond}
	runner := &countingRunner{limit: 3}
	l := NewLoop(WithRunner(runner), WithClock(clock.now, clock.sleep))

	var deltas []time.Duration
	err := l.Run(context.Background(), func(delta time.Duration) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{0, 16 * time.Millisecond, 16 * time.Millisecond}, deltas)
	assert.Empty(t, clock.sleeps)
}

func TestLoopStop(t *testing.T) {
	l := NewLoop()
	frames := 0
	err := l.Run(context.Background(), func(time.Duration) error {
		frames++
		if frames == 5 {
			l.Stop()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, frames)
}

func TestLoopContextAndError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop()
	err := l.Run(ctx, func(time.Duration) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	boom := errors.New("boom")
	err = NewLoop().Run(context.Background(), func(time.Duration) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestLoopFrameLimit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 5 * time.Millisecond}
	l := NewLoop(WithRunner(&countingRunner{limit: 2}), WithClock(clock.now, clock.sleep), WithFrameLimit(50))

	require.NoError(t, l.Run(context.Background(), func(time.Duration) error { return nil }))
	assert.Equal(t, []time.Duration{15 * time.Millisecond, 15 * time.Millisecond}, clock.sleeps)
}

func TestFPSCounter(t *testing.T) {
	var c FPSCounter
	start := time.Unix(100, 0)

	for i := range 60 {
		_, ok := c.Tick(start.Add(time.Duration(i) * 16 * time.Millisecond))
		require.False(t, ok, "frame %d", i)
	}

	fps, ok := c.Tick(start.Add(1100 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 61, fps)

	// The window advanced by exactly one second, so 100ms already count toward the next one.
	_, ok = c.Tick(start.Add(1900 * time.Millisecond))
	assert.False(t, ok)
	fps, ok = c.Tick(start.Add(2000 * time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, 2, fps)
}
