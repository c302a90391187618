package buffer

import "github.com/Carmen-Shannon/oxy-gl/engine/device"

// bufferConfig collects construction options shared by every element type.
type bufferConfig struct {
	label  string
	usage  device.UsageHint
	target device.Target
}

func defaultBufferConfig() bufferConfig {
	return bufferConfig{
		label:  "buffer",
		usage:  device.UsageStatic,
		target: device.TargetVertex,
	}
}

// DynamicBufferBuilderOption is a functional option applied to a buffer during construction.
type DynamicBufferBuilderOption func(*bufferConfig)

// WithUsage sets the usage hint passed to the device. Defaults to device.UsageStatic.
//
// Parameters:
//   - usage: the usage hint
//
// Returns:
//   - DynamicBufferBuilderOption: a function that applies the usage hint
func WithUsage(usage device.UsageHint) DynamicBufferBuilderOption {
	return func(c *bufferConfig) {
		c.usage = usage
	}
}

// WithTarget sets whether the buffer holds vertices or indices. Defaults to device.TargetVertex.
//
// Parameters:
//   - target: the buffer target
//
// Returns:
//   - DynamicBufferBuilderOption: a function that applies the target
func WithTarget(target device.Target) DynamicBufferBuilderOption {
	return func(c *bufferConfig) {
		c.target = target
	}
}

// WithLabel sets the debug label of the buffer.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - DynamicBufferBuilderOption: a function that applies the label
func WithLabel(label string) DynamicBufferBuilderOption {
	return func(c *bufferConfig) {
		c.label = label
	}
}
