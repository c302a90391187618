package bind_group_provider

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/shader"
)

var (
	// ErrUnknownName is returned when a setter names no uniform member or texture of the group.
	ErrUnknownName = errors.New("no such uniform or texture")
	// ErrTypeMismatch is returned when values do not fit the member they are assigned to.
	ErrTypeMismatch = errors.New("value does not match the declared type")
)

// uniformBlock is one uniform buffer of the group, staged in a DynamicBuffer of 4-byte words.
type uniformBlock struct {
	resource shader.Resource
	buf      buffer.DynamicBuffer[float32]
}

type fieldRef struct {
	block *uniformBlock
	field shader.UniformField
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string
	usage device.UsageHint
	group uint32

	mu       *sync.Mutex
	uniforms []*uniformBlock
	fields   map[string]fieldRef
	// textures holds the texture and sampler resources by name.
	textures map[string]shader.Resource
	bound    map[device.ResourceSlot]common.Releaser
	released bool
}

// BindGroupProvider owns the uniform buffers of one bind group of a program and tracks the
// textures assigned to its texture and sampler bindings. Uniform members are addressed by
// their dotted name, e.g. "params.rotation".
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	Label() string

	// Group returns the bind group index the provider serves.
	Group() uint32

	// SetFloat assigns an f32 scalar, vector or matrix member. Matrices take their values
	// column-major, without padding.
	//
	// Parameters:
	//   - name: the member name
	//   - values: exactly columns*rows values
	//
	// Returns:
	//   - error: ErrUnknownName, ErrTypeMismatch, or ErrReleased from the staging buffer
	SetFloat(name string, values ...float32) error

	// SetInt assigns an i32 scalar or vector member.
	//
	// Parameters:
	//   - name: the member name
	//   - values: exactly one value per component
	//
	// Returns:
	//   - error: ErrUnknownName or ErrTypeMismatch
	SetInt(name string, values ...int32) error

	// SetUint assigns a u32 scalar or vector member.
	//
	// Parameters:
	//   - name: the member name
	//   - values: exactly one value per component
	//
	// Returns:
	//   - error: ErrUnknownName or ErrTypeMismatch
	SetUint(name string, values ...uint32) error

	// SetTexture assigns a texture to a texture binding, and to the sampler binding named
	// name+"_sampler" if the group declares one. Naming a sampler binding assigns only the sampler.
	//
	// Parameters:
	//   - name: the texture or sampler resource name
	//   - tex: a texture uploaded by the device
	//
	// Returns:
	//   - error: ErrUnknownName if the group declares no such texture or sampler
	SetTexture(name string, tex common.Releaser) error

	// BindForDraw flushes pending uniform writes and attaches every resource of the group.
	//
	// Parameters:
	//   - b: the device binder
	//
	// Returns:
	//   - error: a flush error, or an error naming a texture that was never set
	BindForDraw(b device.Binder) error

	// Release releases the uniform buffers. Textures stay owned by the caller.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a uniform buffer for every uniform the program declares in
// group, sized by its reflected layout and zeroed.
//
// Parameters:
//   - dev: the device that owns the uniform buffers
//   - info: the reflected program
//   - group: the bind group index to serve
//   - options: functional options for label and usage
//
// Returns:
//   - BindGroupProvider: the provider
//   - error: an error if the group declares nothing or a uniform buffer cannot be allocated
func NewBindGroupProvider(dev device.Device, info shader.Info, group uint32, options ...BindGroupProviderOption) (BindGroupProvider, error) {
	p := &bindGroupProvider{
		label:    fmt.Sprintf("Group %d", group),
		usage:    device.UsageDynamic,
		group:    group,
		mu:       &sync.Mutex{},
		fields:   make(map[string]fieldRef),
		textures: make(map[string]shader.Resource),
		bound:    make(map[device.ResourceSlot]common.Releaser),
	}
	for _, opt := range options {
		opt(p)
	}

	for _, r := range info.Resources {
		if r.Group != group {
			continue
		}
		if r.Kind != device.ResourceUniform {
			p.textures[r.Name] = r
			continue
		}

		buf, err := buffer.New[float32](dev, r.Uniform.Size/4,
			buffer.WithTarget(device.TargetUniform),
			buffer.WithUsage(p.usage),
			buffer.WithLabel(p.label+" "+r.Name),
		)
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("uniform %q: %w", r.Name, err)
		}
		block := &uniformBlock{resource: r, buf: buf}
		p.uniforms = append(p.uniforms, block)
		for _, f := range r.Uniform.Fields {
			p.fields[f.Name] = fieldRef{block: block, field: f}
		}
	}

	if len(p.uniforms) == 0 && len(p.textures) == 0 {
		return nil, fmt.Errorf("%s: program declares no resources in group %d", p.label, group)
	}
	common.Logger().Debug("bind group provider created", "label", p.label, "group", group, "uniforms", len(p.uniforms), "textures", len(p.textures))
	return p, nil
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() uint32 {
	return p.group
}

func (p *bindGroupProvider) SetFloat(name string, values ...float32) error {
	return p.set(name, "f32", values)
}

func (p *bindGroupProvider) SetInt(name string, values ...int32) error {
	words := make([]float32, len(values))
	for i, v := range values {
		words[i] = math.Float32frombits(uint32(v))
	}
	return p.set(name, "i32", words)
}

func (p *bindGroupProvider) SetUint(name string, values ...uint32) error {
	words := make([]float32, len(values))
	for i, v := range values {
		words[i] = math.Float32frombits(v)
	}
	return p.set(name, "u32", words)
}

// set writes words column by column so matrix column padding is left untouched.
func (p *bindGroupProvider) set(name, scalar string, words []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref, ok := p.fields[name]
	if !ok {
		return fmt.Errorf("%s: %q: %w", p.label, name, ErrUnknownName)
	}
	f := ref.field
	if f.Scalar != scalar {
		return fmt.Errorf("%s: %q is %s, not %s: %w", p.label, name, f.Type, scalar, ErrTypeMismatch)
	}
	if len(words) != f.Columns*f.Rows {
		return fmt.Errorf("%s: %q is %s and takes %d values, got %d: %w", p.label, name, f.Type, f.Columns*f.Rows, len(words), ErrTypeMismatch)
	}

	for c := 0; c < f.Columns; c++ {
		offset := (f.Offset + c*f.ColumnStride) / 4
		if err := ref.block.buf.Write(offset, words[c*f.Rows:(c+1)*f.Rows]...); err != nil {
			return err
		}
	}
	return nil
}

func (p *bindGroupProvider) SetTexture(name string, tex common.Releaser) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.textures[name]
	if !ok {
		return fmt.Errorf("%s: texture %q: %w", p.label, name, ErrUnknownName)
	}
	p.bound[r.Slot()] = tex
	if r.Kind == device.ResourceTexture {
		if s, ok := p.textures[name+"_sampler"]; ok && s.Kind == device.ResourceSampler {
			p.bound[s.Slot()] = tex
		}
	}
	return nil
}

func (p *bindGroupProvider) BindForDraw(b device.Binder) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return buffer.ErrReleased
	}
	for _, u := range p.uniforms {
		if err := u.buf.Flush(); err != nil {
			return fmt.Errorf("%s: uniform %q: %w", p.label, u.resource.Name, err)
		}
		b.BindUniform(u.resource.Slot(), u.buf.Handle())
	}
	for _, r := range p.textures {
		tex, ok := p.bound[r.Slot()]
		if !ok {
			return fmt.Errorf("%s: %s %q was never set", p.label, r.Kind, r.Name)
		}
		if r.Kind == device.ResourceSampler {
			b.BindSampler(r.Slot(), tex)
		} else {
			b.BindTexture(r.Slot(), tex)
		}
	}
	return nil
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}
	p.released = true
	for _, u := range p.uniforms {
		u.buf.Release()
	}
	p.uniforms = nil
	clear(p.fields)
	clear(p.bound)
}
