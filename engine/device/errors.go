package device

import (
	"errors"
	"fmt"
)

// ErrUnknownHandle is reported when an operation names a handle the device does not own.
var ErrUnknownHandle = errors.New("unknown buffer handle")

// ErrOutOfMemory is reported when a device has no room left for an allocation.
var ErrOutOfMemory = errors.New("out of device memory")

// AllocationError reports that the device could not provide backing memory for a buffer.
type AllocationError struct {
	// Size is the requested size in bytes.
	Size int
	// Err is the underlying cause.
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %d bytes: %v", e.Size, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// DeviceError reports a failed transfer to the device. Transfers are retryable.
type DeviceError struct {
	// Op names the failed device operation, e.g. "upload range".
	Op string
	// Handle is the buffer the operation targeted.
	Handle Handle
	// Err is the underlying cause.
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s on buffer %d: %v", e.Op, e.Handle, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
