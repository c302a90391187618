package device

import "github.com/cogentcore/webgpu/wgpu"

// MemoryDeviceBuilderOption is a functional option applied to a MemoryDevice during construction.
type MemoryDeviceBuilderOption func(*MemoryDevice)

// WithMemoryLimit caps the total bytes a MemoryDevice will hand out. Allocations past the
// limit fail with an *AllocationError wrapping ErrOutOfMemory.
//
// Parameters:
//   - bytes: the byte budget, 0 for unlimited
//
// Returns:
//   - MemoryDeviceBuilderOption: a function that applies the limit to a MemoryDevice
func WithMemoryLimit(bytes int) MemoryDeviceBuilderOption {
	return func(d *MemoryDevice) {
		d.limit = bytes
	}
}

// WGPUDeviceBuilderOption is a functional option applied to a WGPUDevice during construction.
type WGPUDeviceBuilderOption func(*WGPUDevice)

// WithLabel sets the debug label prefix used for every GPU object the device creates.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the label to a WGPUDevice
func WithLabel(label string) WGPUDeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.label = label
	}
}

// WithForceSoftwareAdapter requests a CPU/software fallback adapter instead of hardware.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the option to a WGPUDevice
func WithForceSoftwareAdapter(force bool) WGPUDeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithClearColor sets the color the frame pass clears to.
//
// Parameters:
//   - r, g, b, a: the clear color components in [0, 1]
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the clear color to a WGPUDevice
func WithClearColor(r, g, b, a float64) WGPUDeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.clearColor = [4]float64{r, g, b, a}
	}
}

// WithPowerPreference asks the adapter request for a low-power or high-performance GPU.
//
// Parameters:
//   - pref: the preference, wgpu.PowerPreferenceUndefined lets the driver choose
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the preference to a WGPUDevice
func WithPowerPreference(pref wgpu.PowerPreference) WGPUDeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.powerPreference = pref
	}
}
