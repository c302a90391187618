package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAspect(t *testing.T) {
	assert.Equal(t, float32(2), aspect(200, 100))
	assert.InDelta(t, 16.0/9.0, aspect(1920, 1080), 1e-6)
	assert.Equal(t, float32(1), aspect(0, 0), "a minimized window must not divide by zero")
}

func TestBuilderOptions(t *testing.T) {
	w := newEngineWindow(
		WithTitle("quad"),
		WithSize(640, 480),
		WithMinSize(320, 240),
		WithMaxSize(1920, 1080),
		WithResizable(false),
	)
	assert.Equal(t, "quad", w.title)
	width, height := w.Size()
	assert.Equal(t, 640, width)
	assert.Equal(t, 480, height)
	assert.Equal(t, 320, w.minWidth)
	assert.Equal(t, 1080, w.maxHeight)
	assert.False(t, w.resizable)
	assert.InDelta(t, 4.0/3.0, w.Aspect(), 1e-6)
}

func TestResizedNotifies(t *testing.T) {
	w := newEngineWindow()
	var got [2]int
	w.SetResizeCallback(func(width, height int) { got = [2]int{width, height} })

	w.resized(300, 100)
	assert.Equal(t, [2]int{300, 100}, got)
	assert.Equal(t, float32(3), w.Aspect())
}

func TestUncreatedWindow(t *testing.T) {
	w := newEngineWindow()
	assert.False(t, w.IsRunning())
	assert.False(t, w.PollEvents())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
}
