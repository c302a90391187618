package device

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/common"
)

// MemoryStats counts the calls a MemoryDevice has served.
type MemoryStats struct {
	Allocations   int
	FullUploads   int
	RangeUploads  int
	Binds         int
	ResourceBinds int
	Releases      int
	Draws         int
	BytesUploaded int
}

type memoryBuffer struct {
	data   []byte
	usage  UsageHint
	target Target
}

// MemoryDevice is a headless Device that keeps every buffer in host memory.
// It is safe for concurrent use.
type MemoryDevice struct {
	mu *sync.Mutex

	next    Handle
	buffers map[Handle]*memoryBuffer

	vertexBindings map[BindPoint]Handle
	indexBinding   Handle

	uniforms map[ResourceSlot]Handle
	textures map[ResourceSlot]common.Releaser
	samplers map[ResourceSlot]common.Releaser

	// limit is the total byte budget, 0 means unlimited.
	limit int
	used  int

	stats MemoryStats
	draws []DrawCall
}

var _ Device = &MemoryDevice{}
var _ Binder = &MemoryDevice{}

// NewMemoryDevice creates an empty MemoryDevice.
//
// Parameters:
//   - options: functional options for the device
//
// Returns:
//   - *MemoryDevice: the new device
func NewMemoryDevice(options ...MemoryDeviceBuilderOption) *MemoryDevice {
	d := &MemoryDevice{
		mu:             &sync.Mutex{},
		buffers:        make(map[Handle]*memoryBuffer),
		vertexBindings: make(map[BindPoint]Handle),
		uniforms:       make(map[ResourceSlot]Handle),
		textures:       make(map[ResourceSlot]common.Releaser),
		samplers:       make(map[ResourceSlot]common.Releaser),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *MemoryDevice) Allocate(sizeBytes int, usage UsageHint, target Target) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sizeBytes < 0 {
		return 0, &AllocationError{Size: sizeBytes, Err: fmt.Errorf("negative size")}
	}
	if d.limit > 0 && d.used+sizeBytes > d.limit {
		common.Logger().Debug("memory device allocation rejected", "size", sizeBytes, "used", d.used, "limit", d.limit)
		return 0, &AllocationError{Size: sizeBytes, Err: ErrOutOfMemory}
	}

	d.next++
	d.buffers[d.next] = &memoryBuffer{
		data:   make([]byte, sizeBytes),
		usage:  usage,
		target: target,
	}
	d.used += sizeBytes
	d.stats.Allocations++
	return d.next, nil
}

func (d *MemoryDevice) UploadFull(h Handle, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return &DeviceError{Op: "upload full", Handle: h, Err: ErrUnknownHandle}
	}
	if len(data) > len(buf.data) {
		return &DeviceError{Op: "upload full", Handle: h, Err: fmt.Errorf("%d bytes exceed buffer size %d", len(data), len(buf.data))}
	}
	copy(buf.data, data)
	d.stats.FullUploads++
	d.stats.BytesUploaded += len(data)
	return nil
}

func (d *MemoryDevice) UploadRange(h Handle, byteOffset int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return &DeviceError{Op: "upload range", Handle: h, Err: ErrUnknownHandle}
	}
	if byteOffset < 0 || byteOffset+len(data) > len(buf.data) {
		return &DeviceError{Op: "upload range", Handle: h, Err: fmt.Errorf("range [%d, %d) exceeds buffer size %d", byteOffset, byteOffset+len(data), len(buf.data))}
	}
	copy(buf.data[byteOffset:], data)
	d.stats.RangeUploads++
	d.stats.BytesUploaded += len(data)
	return nil
}

func (d *MemoryDevice) Bind(h Handle, point BindPoint) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return
	}
	switch buf.target {
	case TargetIndex:
		d.indexBinding = h
	case TargetVertex:
		d.vertexBindings[point] = h
	default:
		return
	}
	d.stats.Binds++
}

// BindUniform attaches a uniform buffer to a resource slot. Unknown handles and buffers of
// other targets are ignored.
func (d *MemoryDevice) BindUniform(slot ResourceSlot, h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok || buf.target != TargetUniform {
		common.Logger().Warn("uniform bind ignored", "handle", h, "group", slot.Group, "binding", slot.Binding)
		return
	}
	d.uniforms[slot] = h
	d.stats.ResourceBinds++
}

// BindTexture records tex at a resource slot.
func (d *MemoryDevice) BindTexture(slot ResourceSlot, tex common.Releaser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.textures[slot] = tex
	d.stats.ResourceBinds++
}

// BindSampler records the sampler of tex at a resource slot.
func (d *MemoryDevice) BindSampler(slot ResourceSlot, tex common.Releaser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samplers[slot] = tex
	d.stats.ResourceBinds++
}

func (d *MemoryDevice) Release(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return
	}
	d.used -= len(buf.data)
	delete(d.buffers, h)
	for point, bound := range d.vertexBindings {
		if bound == h {
			delete(d.vertexBindings, point)
		}
	}
	if d.indexBinding == h {
		d.indexBinding = 0
	}
	for slot, bound := range d.uniforms {
		if bound == h {
			delete(d.uniforms, slot)
		}
	}
	d.stats.Releases++
}

// Contents returns a copy of the device-side bytes of a buffer.
//
// Parameters:
//   - h: the buffer handle
//
// Returns:
//   - []byte: a copy of the buffer contents
//   - bool: false if the handle is not live
func (d *MemoryDevice) Contents(h Handle) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(buf.data))
	copy(out, buf.data)
	return out, true
}

// Usage returns the usage hint a live buffer was allocated with.
func (d *MemoryDevice) Usage(h Handle) (UsageHint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return 0, false
	}
	return buf.usage, true
}

// BoundVertex returns the handle bound at a vertex bind point, or 0.
func (d *MemoryDevice) BoundVertex(point BindPoint) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vertexBindings[point]
}

// BoundIndex returns the currently bound index buffer, or 0.
func (d *MemoryDevice) BoundIndex() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexBinding
}

// BoundUniform returns the uniform buffer bound at a resource slot, or 0.
func (d *MemoryDevice) BoundUniform(slot ResourceSlot) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uniforms[slot]
}

// BoundTexture returns the texture bound at a resource slot, or nil.
func (d *MemoryDevice) BoundTexture(slot ResourceSlot) common.Releaser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textures[slot]
}

// BoundSampler returns the texture whose sampler is bound at a resource slot, or nil.
func (d *MemoryDevice) BoundSampler(slot ResourceSlot) common.Releaser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.samplers[slot]
}

// Live returns the number of buffers that have not been released.
func (d *MemoryDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// Used returns the number of bytes held by live buffers.
func (d *MemoryDevice) Used() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

// Stats returns a snapshot of the call counters.
func (d *MemoryDevice) Stats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// UploadedBytes returns the total bytes written by UploadFull and UploadRange.
func (d *MemoryDevice) UploadedBytes() int {
	return d.Stats().BytesUploaded
}

// DrawArrays records a non-indexed draw.
//
// Parameters:
//   - mode: the primitive mode
//   - count: the number of vertices
//   - instances: the number of instances
//
// Returns:
//   - error: an error if no vertex buffer is bound
func (d *MemoryDevice) DrawArrays(mode Mode, count, instances int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.vertexBindings) == 0 {
		return fmt.Errorf("draw %s: no vertex buffer bound", mode)
	}
	d.recordDraw(DrawCall{Mode: mode, Count: count, Instances: instances})
	return nil
}

// DrawIndexed records an indexed draw.
//
// Parameters:
//   - mode: the primitive mode
//   - format: the element type of the bound index buffer
//   - count: the number of indices
//   - instances: the number of instances
//
// Returns:
//   - error: an error if no index buffer is bound
func (d *MemoryDevice) DrawIndexed(mode Mode, format IndexFormat, count, instances int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexBinding == 0 {
		return fmt.Errorf("draw %s: no index buffer bound", mode)
	}
	d.recordDraw(DrawCall{Mode: mode, Indexed: true, Format: format, Count: count, Instances: instances})
	return nil
}

func (d *MemoryDevice) recordDraw(call DrawCall) {
	call.Vertex = make(map[BindPoint]Handle, len(d.vertexBindings))
	for point, h := range d.vertexBindings {
		call.Vertex[point] = h
	}
	call.Index = d.indexBinding
	call.Uniforms = make(map[ResourceSlot]Handle, len(d.uniforms))
	for slot, h := range d.uniforms {
		call.Uniforms[slot] = h
	}
	d.draws = append(d.draws, call)
	d.stats.Draws++
}

// Draws returns the draws recorded so far.
func (d *MemoryDevice) Draws() []DrawCall {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]DrawCall, len(d.draws))
	copy(out, d.draws)
	return out
}
