package frame

import "time"

// LoopBuilderOption is a functional option applied to a Loop during construction.
type LoopBuilderOption func(*Loop)

// WithRunner polls r before every frame and stops when it reports false.
//
// Parameters:
//   - r: the event pump, typically a window
//
// Returns:
//   - LoopBuilderOption: a function that applies the runner to a Loop
func WithRunner(r Runner) LoopBuilderOption {
	return func(l *Loop) {
		l.runner = r
	}
}

// WithFrameLimit caps the frame rate by sleeping out the rest of each frame.
//
// Parameters:
//   - fps: the maximum frames per second, 0 for unlimited
//
// Returns:
//   - LoopBuilderOption: a function that applies the limit to a Loop
func WithFrameLimit(fps int) LoopBuilderOption {
	return func(l *Loop) {
		if fps > 0 {
			l.interval = time.Second / time.Duration(fps)
		} else {
			l.interval = 0
		}
	}
}

// WithClock replaces the time source and sleep function.
//
// Parameters:
//   - now: returns the current time
//   - sleep: blocks for the given duration
//
// Returns:
//   - LoopBuilderOption: a function that applies the clock to a Loop
func WithClock(now func() time.Time, sleep func(time.Duration)) LoopBuilderOption {
	return func(l *Loop) {
		l.now = now
		l.sleep = sleep
	}
}
