package bind_group_provider

import "github.com/Carmen-Shannon/oxy-gl/engine/device"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLabel sets the debug label of the provider and its uniform buffers.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BindGroupProviderOption: a function that sets the label
func WithLabel(label string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.label = label
	}
}

// WithUsage sets the usage hint of the uniform buffers. The default is device.UsageDynamic.
//
// Parameters:
//   - usage: the usage hint
//
// Returns:
//   - BindGroupProviderOption: a function that sets the usage hint
func WithUsage(usage device.UsageHint) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.usage = usage
	}
}
