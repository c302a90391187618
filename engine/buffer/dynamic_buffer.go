package buffer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// dynamicBuffer is the implementation of DynamicBuffer.
type dynamicBuffer[T Element] struct {
	label  string
	usage  device.UsageHint
	target device.Target
	kind   ElementKind

	dev    device.Device
	handle device.Handle

	// staging mirrors the device buffer. Only this buffer mutates it.
	staging []T

	// low and high bound the elements written since the last flush, as the
	// half-open interval [low, high). low >= high means nothing is pending,
	// and the empty range is always stored as [len(staging), 0).
	low, high int

	released bool
}

// Buffer is the element-type independent view of a DynamicBuffer, used by draw submission.
type Buffer interface {
	// Label returns the debug label of the buffer.
	Label() string

	// Len returns the capacity of the buffer in elements.
	Len() int

	// Kind returns the element kind of the buffer.
	Kind() ElementKind

	// Usage returns the usage hint the device buffer was allocated with.
	Usage() device.UsageHint

	// Target returns whether the buffer holds vertices or indices.
	Target() device.Target

	// Handle returns the current device handle. It changes on every Resize.
	Handle() device.Handle

	// DirtyRange returns the pending interval [low, high) in elements.
	// An empty range is reported as (Len(), 0).
	//
	// Returns:
	//   - int: the first dirty element
	//   - int: one past the last dirty element
	DirtyRange() (int, int)

	// IsDirty reports whether writes are waiting to be flushed.
	IsDirty() bool

	// Resize changes the capacity of the buffer. Elements below min(old, n) are preserved;
	// elements above are zero. The new device buffer is uploaded in full, so the buffer is
	// clean afterwards. On failure the buffer keeps its previous handle, contents and dirty range.
	//
	// Parameters:
	//   - n: the new capacity in elements
	//
	// Returns:
	//   - error: a *device.AllocationError or *device.DeviceError on failure
	Resize(n int) error

	// Flush uploads the dirty range to the device with a single sub-range upload and clears it.
	// A clean buffer performs no device call. On failure the dirty range is kept so the next
	// Flush retries the same range.
	//
	// Returns:
	//   - error: a *device.DeviceError if the upload fails
	Flush() error

	// BindForDraw flushes pending writes and then binds the buffer at the bind point.
	// Nothing is bound if the flush fails.
	//
	// Parameters:
	//   - point: the bind point
	//
	// Returns:
	//   - error: the flush error, if any
	BindForDraw(point device.BindPoint) error

	// Release frees the device buffer. Every later call returns ErrReleased.
	Release()
}

// DynamicBuffer is a CPU-side staging array mirroring a GPU buffer. Writes only touch the
// staging array and widen a single dirty interval; Flush sends the enclosing interval to the
// device in one sub-range upload.
//
// A DynamicBuffer is not safe for concurrent use.
type DynamicBuffer[T Element] interface {
	Buffer

	// Write copies values into the staging array starting at offset and widens the dirty range
	// to cover them. No device I/O happens. Writing zero values leaves the dirty range untouched.
	//
	// Parameters:
	//   - offset: the first element to write
	//   - values: the elements to write
	//
	// Returns:
	//   - error: an *OutOfBoundsError if offset < 0 or offset+len(values) > Len(); nothing is written
	Write(offset int, values ...T) error

	// At returns the staged element at index i.
	At(i int) T

	// Data returns a copy of the staging array.
	Data() []T
}

var _ DynamicBuffer[float32] = &dynamicBuffer[float32]{}

// New creates a DynamicBuffer of capacity zeroed elements and allocates its device buffer.
//
// Parameters:
//   - dev: the device that owns the GPU buffer
//   - capacity: the number of elements
//   - options: functional options for usage, target and label
//
// Returns:
//   - DynamicBuffer[T]: the new clean buffer
//   - error: a *device.AllocationError if capacity is negative or the device rejects the allocation
func New[T Element](dev device.Device, capacity int, options ...DynamicBufferBuilderOption) (DynamicBuffer[T], error) {
	if capacity < 0 {
		return nil, &device.AllocationError{Size: capacity * KindOf[T]().Size(), Err: fmt.Errorf("negative capacity %d", capacity)}
	}
	b, err := newDynamicBuffer(dev, make([]T, capacity), options)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewFromData creates a DynamicBuffer holding a copy of data, with capacity len(data).
//
// Parameters:
//   - dev: the device that owns the GPU buffer
//   - data: the initial contents
//   - options: functional options for usage, target and label
//
// Returns:
//   - DynamicBuffer[T]: the new clean buffer
//   - error: a *device.AllocationError or *device.DeviceError on failure
func NewFromData[T Element](dev device.Device, data []T, options ...DynamicBufferBuilderOption) (DynamicBuffer[T], error) {
	staging := make([]T, len(data))
	copy(staging, data)
	b, err := newDynamicBuffer(dev, staging, options)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewIndices creates an index buffer of 16-bit unsigned indices.
//
// Parameters:
//   - dev: the device that owns the GPU buffer
//   - indices: the initial indices
//   - options: functional options; the target is always device.TargetIndex
//
// Returns:
//   - DynamicBuffer[uint16]: the new clean index buffer
//   - error: a *device.AllocationError or *device.DeviceError on failure
func NewIndices(dev device.Device, indices []uint16, options ...DynamicBufferBuilderOption) (DynamicBuffer[uint16], error) {
	return NewFromData(dev, indices, append(options, WithTarget(device.TargetIndex))...)
}

// newDynamicBuffer takes ownership of staging, allocates the device buffer and uploads staging in full.
func newDynamicBuffer[T Element](dev device.Device, staging []T, options []DynamicBufferBuilderOption) (*dynamicBuffer[T], error) {
	cfg := defaultBufferConfig()
	for _, opt := range options {
		opt(&cfg)
	}

	b := &dynamicBuffer[T]{
		label:  cfg.label,
		usage:  cfg.usage,
		target: cfg.target,
		kind:   KindOf[T](),
		dev:    dev,
	}
	h, err := b.allocate(staging)
	if err != nil {
		return nil, err
	}
	b.staging = staging
	b.handle = h
	b.clearDirty()

	common.Logger().Debug("buffer created", "label", b.label, "kind", b.kind, "capacity", len(staging), "usage", b.usage, "target", b.target)
	return b, nil
}

// allocate creates a device buffer sized for staging and uploads staging in full.
// The new handle is released again if the upload fails.
func (b *dynamicBuffer[T]) allocate(staging []T) (device.Handle, error) {
	size := len(staging) * b.kind.Size()
	h, err := b.dev.Allocate(size, b.usage, b.target)
	if err != nil {
		common.Logger().Debug("buffer allocation failed", "label", b.label, "size", size, "error", err)
		return 0, err
	}
	if size == 0 {
		return h, nil
	}
	if err := b.dev.UploadFull(h, common.SliceToBytes(staging)); err != nil {
		b.dev.Release(h)
		return 0, err
	}
	return h, nil
}

func (b *dynamicBuffer[T]) clearDirty() {
	b.low, b.high = len(b.staging), 0
}

func (b *dynamicBuffer[T]) Label() string {
	return b.label
}

func (b *dynamicBuffer[T]) Len() int {
	return len(b.staging)
}

func (b *dynamicBuffer[T]) Kind() ElementKind {
	return b.kind
}

func (b *dynamicBuffer[T]) Usage() device.UsageHint {
	return b.usage
}

func (b *dynamicBuffer[T]) Target() device.Target {
	return b.target
}

func (b *dynamicBuffer[T]) Handle() device.Handle {
	return b.handle
}

func (b *dynamicBuffer[T]) DirtyRange() (int, int) {
	return b.low, b.high
}

func (b *dynamicBuffer[T]) IsDirty() bool {
	return b.low < b.high
}

func (b *dynamicBuffer[T]) At(i int) T {
	return b.staging[i]
}

func (b *dynamicBuffer[T]) Data() []T {
	out := make([]T, len(b.staging))
	copy(out, b.staging)
	return out
}

func (b *dynamicBuffer[T]) Write(offset int, values ...T) error {
	if b.released {
		return ErrReleased
	}
	n := len(values)
	if offset < 0 || n > len(b.staging) || offset > len(b.staging)-n {
		return &OutOfBoundsError{Offset: offset, Count: n, Capacity: len(b.staging)}
	}
	if n == 0 {
		return nil
	}

	copy(b.staging[offset:], values)
	b.low = min(b.low, offset)
	b.high = max(b.high, offset+n)
	return nil
}

func (b *dynamicBuffer[T]) Flush() error {
	if b.released {
		return ErrReleased
	}
	if b.low >= b.high {
		return nil
	}

	es := b.kind.Size()
	start, end := b.low*es, b.high*es
	if a, ok := b.dev.(device.Aligner); ok {
		start, end = alignRange(start, end, a.CopyAlignment(), len(b.staging)*es)
	}

	data := common.SliceToBytes(b.staging)[start:end]
	if err := b.dev.UploadRange(b.handle, start, data); err != nil {
		common.Logger().Warn("buffer flush failed, range kept for retry", "label", b.label, "low", b.low, "high", b.high, "error", err)
		return err
	}

	b.clearDirty()
	return nil
}

// alignRange widens the byte range [start, end) outward to multiples of align,
// never past limit.
func alignRange(start, end, align, limit int) (int, int) {
	if align <= 1 {
		return start, end
	}
	start -= start % align
	if r := end % align; r != 0 {
		end += align - r
	}
	return start, min(end, limit)
}

func (b *dynamicBuffer[T]) BindForDraw(point device.BindPoint) error {
	if err := b.Flush(); err != nil {
		return err
	}
	b.dev.Bind(b.handle, point)
	return nil
}

func (b *dynamicBuffer[T]) Resize(n int) error {
	if b.released {
		return ErrReleased
	}
	if n < 0 {
		return &device.AllocationError{Size: n * b.kind.Size(), Err: fmt.Errorf("negative capacity %d", n)}
	}

	staging := make([]T, n)
	copy(staging, b.staging)

	h, err := b.allocate(staging)
	if err != nil {
		return err
	}

	old := b.handle
	b.handle = h
	b.staging = staging
	b.clearDirty()
	b.dev.Release(old)

	common.Logger().Debug("buffer resized", "label", b.label, "capacity", n)
	return nil
}

func (b *dynamicBuffer[T]) Release() {
	if b.released {
		return
	}
	b.dev.Release(b.handle)
	b.handle = 0
	b.released = true
}
