package frame

import (
	"context"
	"sync/atomic"
	"time"
)

// Runner pumps platform events between frames. Window implements it.
type Runner interface {
	// PollEvents handles pending events and reports whether the loop should keep going.
	PollEvents() bool
}

// Loop calls a frame function repeatedly on the calling goroutine with the time elapsed
// since the previous call. The first call receives a delta of 0.
type Loop struct {
	runner   Runner
	now      func() time.Time
	sleep    func(time.Duration)
	interval time.Duration
	stopped  atomic.Bool
}

// NewLoop creates a Loop.
//
// Parameters:
//   - options: functional options for the loop
//
// Returns:
//   - *Loop: the new loop
func NewLoop(options ...LoopBuilderOption) *Loop {
	l := &Loop{
		now:   time.Now,
		sleep: time.Sleep,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Run drives frames until Stop is called, ctx is done, the runner reports it is finished
// or a frame returns an error. Run must be called from the goroutine that owns the device.
//
// Parameters:
//   - ctx: stops the loop when done
//   - frame: called once per frame with the delta since the previous frame
//
// Returns:
//   - error: the frame error, ctx.Err() on cancellation, or nil
func (l *Loop) Run(ctx context.Context, frame func(delta time.Duration) error) error {
	l.stopped.Store(false)

	var last time.Time
	for !l.stopped.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.runner != nil && !l.runner.PollEvents() {
			return nil
		}

		now := l.now()
		var delta time.Duration
		if !last.IsZero() {
			delta = now.Sub(last)
		}
		last = now

		if err := frame(delta); err != nil {
			return err
		}

		if l.interval > 0 {
			if rest := l.interval - l.now().Sub(now); rest > 0 {
				l.sleep(rest)
			}
		}
	}
	return nil
}

// Stop makes Run return after the current frame. It is safe to call from any goroutine.
func (l *Loop) Stop() {
	l.stopped.Store(true)
}

// FPSCounter counts frames per second. Tick is called once per frame.
type FPSCounter struct {
	last   time.Time
	frames int
}

// Tick counts a frame at now. Once a second has passed since the start of the current window,
// it reports the frames counted and advances the window by exactly one second, so time spent
// past the boundary counts toward the next report.
//
// Parameters:
//   - now: the frame time
//
// Returns:
//   - int: the frames counted in the completed second
//   - bool: true when a second completed on this tick
func (c *FPSCounter) Tick(now time.Time) (int, bool) {
	if c.last.IsZero() {
		c.last = now
	}
	c.frames++

	if now.Sub(c.last) < time.Second {
		return 0, false
	}
	fps := c.frames
	c.last = c.last.Add(time.Second)
	c.frames = 0
	return fps, true
}
