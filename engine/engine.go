package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/frame"
	"github.com/Carmen-Shannon/oxy-gl/engine/profiler"
)

// Window is the part of window.Window the engine drives.
type Window interface {
	frame.Runner

	// SetResizeCallback sets the function called when the framebuffer is resized.
	SetResizeCallback(callback func(width, height int))

	// Size returns the framebuffer size in pixels.
	Size() (int, int)
}

// FrameTarget is a device that renders into a presentable surface. device.WGPUDevice implements it.
type FrameTarget interface {
	// ConfigureSurface sizes the surface in pixels.
	ConfigureSurface(width, height int)

	// BeginFrame acquires the next surface texture and opens the frame pass.
	BeginFrame() error

	// EndFrame closes the frame pass and submits it.
	EndFrame() error

	// Present shows the submitted frame.
	Present()
}

// engine implements the Engine interface.
type engine struct {
	window Window
	target FrameTarget
	loop   *frame.Loop

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit int
	onResize         func(width, height int)
	now              func() time.Time
	sleep            func(time.Duration)

	// skipped counts consecutive frames BeginFrame failed for.
	skipped int
}

const (
	skipBackoffBase = 10 * time.Millisecond
	skipBackoffMax  = 500 * time.Millisecond
)

// Engine drives the render loop: it polls the window, wraps every render callback in a
// BeginFrame/EndFrame/Present cycle and keeps the surface sized to the window.
type Engine interface {
	// Run renders frames on the calling goroutine until the window closes, Quit is called,
	// ctx is done or render returns an error. Frames the target cannot begin are skipped with a
	// growing delay, except on a device without a surface, which ends the loop.
	//
	// Parameters:
	//   - ctx: stops the loop when done
	//   - render: issues the frame's draws, receiving the time since the previous frame
	//
	// Returns:
	//   - error: the render error, an error wrapping device.ErrNoSurface, ctx.Err() on
	//     cancellation, or nil
	Run(ctx context.Context, render func(delta time.Duration) error) error

	// Quit makes Run return after the current frame. Safe to call from any goroutine.
	Quit()

	// Profiler returns the profiler, or nil when profiling is disabled.
	Profiler() *profiler.Profiler
}

var _ Engine = &engine{}

// NewEngine creates an Engine rendering into target and follows the window's size.
//
// Parameters:
//   - w: the window to poll and follow
//   - target: the device that owns the surface
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(w Window, target FrameTarget, options ...EngineBuilderOption) Engine {
	e := &engine{
		window: w,
		target: target,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.profilingEnabled {
		stats, _ := target.(profiler.BufferStats)
		e.profiler = profiler.NewProfiler(stats)
	}
	e.loop = frame.NewLoop(frame.WithRunner(w), frame.WithFrameLimit(e.renderFrameLimit))

	w.SetResizeCallback(func(width, height int) {
		e.target.ConfigureSurface(width, height)
		if e.onResize != nil {
			e.onResize(width, height)
		}
	})
	return e
}

func (e *engine) Run(ctx context.Context, render func(delta time.Duration) error) error {
	e.target.ConfigureSurface(e.window.Size())

	return e.loop.Run(ctx, func(delta time.Duration) error {
		if err := e.target.BeginFrame(); err != nil {
			if errors.Is(err, device.ErrNoSurface) {
				return fmt.Errorf("begin frame: %w", err)
			}
			// Outdated or lost surfaces recover after the next resize.
			e.skipped++
			wait := skipBackoff(e.skipped)
			common.Logger().Warn("frame skipped", "error", err, "consecutive", e.skipped, "backoff", wait)
			e.sleep(wait)
			return nil
		}
		e.skipped = 0

		renderErr := render(delta)
		if err := e.target.EndFrame(); err != nil && renderErr == nil {
			renderErr = err
		}
		if renderErr != nil {
			return renderErr
		}
		e.target.Present()

		if e.profiler != nil {
			e.profiler.Tick(e.now())
		}
		return nil
	})
}

// skipBackoff doubles from skipBackoffBase per consecutive skip, up to skipBackoffMax.
func skipBackoff(skipped int) time.Duration {
	if skipped <= 0 {
		return 0
	}
	d := skipBackoffBase
	for i := 1; i < skipped && d < skipBackoffMax; i++ {
		d *= 2
	}
	return min(d, skipBackoffMax)
}

func (e *engine) Quit() {
	e.loop.Stop()
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}
