package draw

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// ErrNothingToDraw is returned by Submit when Options names neither attributes nor indices.
var ErrNothingToDraw = errors.New("nothing to draw: no attributes and no indices")

// Drawer is a device that can issue draws with the buffers and resources bound on it.
type Drawer interface {
	device.Device
	device.Binder

	// DrawArrays draws count vertices from the bound vertex buffers.
	DrawArrays(mode device.Mode, count, instances int) error

	// DrawIndexed draws count indices from the bound index buffer.
	DrawIndexed(mode device.Mode, format device.IndexFormat, count, instances int) error
}

// AttributeBinding attaches a buffer to a vertex slot.
type AttributeBinding struct {
	// Slot is the bind point the buffer is bound to.
	Slot device.BindPoint

	// Buffer holds the attribute data.
	Buffer buffer.Buffer

	// Stride is the byte size of one vertex for interleaved data, or 0 for tightly packed data.
	Stride int

	// Components is the number of elements per vertex when Stride is 0.
	Components int

	// PerInstance marks an attribute that advances once per instance.
	// It does not limit the vertex count.
	PerInstance bool
}

// Options describes a single draw.
type Options struct {
	// Mode defaults to device.ModeTriangles.
	Mode device.Mode

	// Instances defaults to 1.
	Instances int

	// Count overrides the vertex or index count when positive.
	Count int

	// Indices is an optional index buffer of ubyte or ushort elements.
	Indices buffer.Buffer

	Attributes []AttributeBinding

	// Resources attach uniforms and textures, typically one per bind group.
	Resources []ResourceGroup
}

// ResourceGroup attaches a set of shader resources before a draw.
type ResourceGroup interface {
	BindForDraw(b device.Binder) error
}

// Submit flushes and binds every buffer named in opts, then issues one draw.
// Nothing is drawn if any step fails.
//
// Parameters:
//   - d: the device to draw with
//   - opts: the draw description
//
// Returns:
//   - error: ErrNothingToDraw, an attribute or index validation error, or the first flush or
//     resource error
func Submit(d Drawer, opts Options) error {
	if len(opts.Attributes) == 0 && opts.Indices == nil {
		return ErrNothingToDraw
	}

	count, err := VertexCount(opts.Attributes)
	if err != nil {
		return err
	}

	var format device.IndexFormat
	if opts.Indices != nil {
		if format, err = IndexFormatOf(opts.Indices.Kind()); err != nil {
			return fmt.Errorf("index buffer %q: %w", opts.Indices.Label(), err)
		}
		if opts.Indices.Target() != device.TargetIndex {
			return fmt.Errorf("index buffer %q has target %s", opts.Indices.Label(), opts.Indices.Target())
		}
		count = opts.Indices.Len()
	}
	if opts.Count > 0 {
		count = opts.Count
	}

	for _, a := range opts.Attributes {
		if err := a.Buffer.BindForDraw(a.Slot); err != nil {
			return fmt.Errorf("attribute buffer %q: %w", a.Buffer.Label(), err)
		}
	}
	if opts.Indices != nil {
		if err := opts.Indices.BindForDraw(0); err != nil {
			return fmt.Errorf("index buffer %q: %w", opts.Indices.Label(), err)
		}
	}

	for i, r := range opts.Resources {
		if err := r.BindForDraw(d); err != nil {
			return fmt.Errorf("resource group %d: %w", i, err)
		}
	}

	instances := max(opts.Instances, 1)
	common.Logger().Debug("draw", "mode", opts.Mode, "count", count, "instances", instances, "indexed", opts.Indices != nil)
	if opts.Indices != nil {
		return d.DrawIndexed(opts.Mode, format, count, instances)
	}
	return d.DrawArrays(opts.Mode, count, instances)
}

// VertexCount returns how many vertices the per-vertex attributes can supply: the minimum over
// every attribute of len*elementSize/stride for interleaved data, or len/components otherwise.
// It returns 0 when there are no per-vertex attributes.
//
// Parameters:
//   - attributes: the attribute bindings
//
// Returns:
//   - int: the vertex count
//   - error: an error if a binding has no buffer or neither a stride nor a positive component count
func VertexCount(attributes []AttributeBinding) (int, error) {
	count := -1
	for i, a := range attributes {
		if a.Buffer == nil {
			return 0, fmt.Errorf("attribute %d has no buffer", i)
		}
		var n int
		switch {
		case a.Stride > 0:
			n = a.Buffer.Len() * a.Buffer.Kind().Size() / a.Stride
		case a.Components > 0:
			n = a.Buffer.Len() / a.Components
		default:
			return 0, fmt.Errorf("attribute buffer %q: component count %d must be positive", a.Buffer.Label(), a.Components)
		}
		if a.PerInstance {
			continue
		}
		if count < 0 || n < count {
			count = n
		}
	}
	return max(count, 0), nil
}

// IndexFormatOf maps an index buffer element kind to a device index format.
//
// Parameters:
//   - kind: the element kind of the index buffer
//
// Returns:
//   - device.IndexFormat: the matching format
//   - error: an error if the kind cannot be used for indices
func IndexFormatOf(kind buffer.ElementKind) (device.IndexFormat, error) {
	switch kind {
	case buffer.KindUint16:
		return device.IndexUint16, nil
	case buffer.KindUint8:
		return device.IndexUint8, nil
	}
	return device.IndexUint16, fmt.Errorf("element kind %s cannot be used for indices", kind)
}
