package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides a native window to render into and its input events.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for creating a WebGPU surface.
	// The descriptor is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true until the window is asked to close.
	IsRunning() bool

	// PollEvents handles pending events without blocking.
	//
	// Returns:
	//   - bool: false once the window should close
	PollEvents() bool

	// ProcessMessages polls events and calls update until the window closes.
	//
	// Parameters:
	//   - update: called once per iteration, may be nil
	ProcessMessages(update func())

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error

	// Size returns the framebuffer size in pixels.
	Size() (int, int)

	// Aspect returns the framebuffer width divided by its height.
	Aspect() float32
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	// width and height track the framebuffer size in pixels.
	width, height int

	minWidth, minHeight int
	maxWidth, maxHeight int
	resizable           bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: error if the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

// newEngineWindow applies defaults and options without touching the platform.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-gl",
		width:     800,
		height:    600,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) PollEvents() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) ProcessMessages(update func()) {
	for w.PollEvents() {
		if update != nil {
			update()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) Aspect() float32 {
	return aspect(w.width, w.height)
}

// resized records a new framebuffer size and notifies the resize callback.
func (w *engineWindow) resized(width, height int) {
	w.width = width
	w.height = height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// aspect returns width/height, or 1 for a minimized window.
func aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}
