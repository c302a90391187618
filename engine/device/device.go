package device

// UsageHint tells the device how often a buffer's contents are expected to change.
// It is passed through to the device's memory placement strategy and is not interpreted
// by the buffer layer.
type UsageHint int

const (
	// UsageStatic marks data that is written once and drawn many times.
	UsageStatic UsageHint = iota

	// UsageDynamic marks data that is rewritten repeatedly and drawn many times.
	UsageDynamic

	// UsageStream marks data that is rewritten roughly once per draw.
	UsageStream
)

// String returns the lowercase name of the usage hint.
func (u UsageHint) String() string {
	switch u {
	case UsageStatic:
		return "static"
	case UsageDynamic:
		return "dynamic"
	case UsageStream:
		return "stream"
	}
	return "unknown"
}

// Target identifies what a buffer is bound as when drawing.
type Target int

const (
	// TargetVertex is a buffer of per-vertex attribute data.
	TargetVertex Target = iota

	// TargetIndex is a buffer of element indices.
	TargetIndex

	// TargetUniform is a buffer of shader uniforms, attached with Binder.BindUniform.
	TargetUniform
)

// String returns the lowercase name of the target.
func (t Target) String() string {
	switch t {
	case TargetIndex:
		return "index"
	case TargetUniform:
		return "uniform"
	}
	return "vertex"
}

// BindPoint is the slot a buffer is bound to for drawing. Vertex buffers use it as the
// vertex buffer slot; index buffers ignore it.
type BindPoint uint32

// Handle is an opaque reference to a device-side buffer object.
// The zero Handle never refers to a live buffer.
type Handle uint64

// Device is the graphics device context consumed by the buffer layer.
//
// All methods are synchronous. Callers serialize access to any single Handle.
type Device interface {
	// Allocate creates a device buffer of sizeBytes bytes.
	//
	// Parameters:
	//   - sizeBytes: the size of the buffer in bytes
	//   - usage: the usage hint for memory placement
	//   - target: whether the buffer holds vertices, indices or uniforms
	//
	// Returns:
	//   - Handle: the new buffer handle
	//   - error: an *AllocationError if the device cannot provide the memory
	Allocate(sizeBytes int, usage UsageHint, target Target) (Handle, error)

	// UploadFull replaces the whole contents of the buffer, starting at byte 0.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: a *DeviceError if the transfer fails
	UploadFull(h Handle, data []byte) error

	// UploadRange writes data at byteOffset, leaving bytes outside the range untouched.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - byteOffset: the destination offset in bytes
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: a *DeviceError if the transfer fails
	UploadRange(h Handle, byteOffset int, data []byte) error

	// Bind makes the buffer current at the given bind point for subsequent draws.
	// Uniform buffers are attached with Binder.BindUniform instead and are ignored here.
	Bind(h Handle, point BindPoint)

	// Release frees the buffer. The handle must not be used afterwards.
	Release(h Handle)
}

// Aligner is implemented by devices whose range uploads must start and end on a byte
// alignment. Buffers widen the flushed range outward to satisfy it, never past their end.
type Aligner interface {
	CopyAlignment() int
}
