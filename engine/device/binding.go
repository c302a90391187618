package device

import "github.com/Carmen-Shannon/oxy-gl/common"

// ResourceKind classifies a shader resource binding.
type ResourceKind int

const (
	// ResourceUniform is a uniform buffer.
	ResourceUniform ResourceKind = iota

	// ResourceTexture is a sampled 2D texture.
	ResourceTexture

	// ResourceSampler is a texture sampler.
	ResourceSampler
)

// String returns the lowercase name of the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case ResourceUniform:
		return "uniform"
	case ResourceTexture:
		return "texture"
	case ResourceSampler:
		return "sampler"
	}
	return "unknown"
}

// ResourceSlot addresses one resource binding of a pipeline.
type ResourceSlot struct {
	Group   uint32
	Binding uint32
}

// BindingLayout is one resource binding a pipeline expects.
type BindingLayout struct {
	ResourceSlot
	Kind ResourceKind
	// MinSize is the minimum byte size of a uniform binding, 0 if unknown.
	MinSize uint64
}

// Binder is implemented by devices that attach uniform buffers, textures and samplers to draws.
// Bindings persist until replaced or until the bound object is released.
type Binder interface {
	// BindUniform attaches a buffer allocated with TargetUniform to a resource slot.
	BindUniform(slot ResourceSlot, h Handle)

	// BindTexture attaches the view of a texture created by the device to a resource slot.
	BindTexture(slot ResourceSlot, tex common.Releaser)

	// BindSampler attaches the sampler of a texture created by the device to a resource slot.
	BindSampler(slot ResourceSlot, tex common.Releaser)
}
