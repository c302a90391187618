package engine

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables the once-per-second profiler log.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps int) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = max(fps, 0)
	}
}

// WithResizeCallback sets a function called after the surface follows a window resize,
// typically to rebuild a projection matrix for the new aspect ratio.
//
// Parameters:
//   - callback: function receiving the new width and height in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithResizeCallback(callback func(width, height int)) EngineBuilderOption {
	return func(e *engine) {
		e.onResize = callback
	}
}
