package buffer

import (
	"errors"
	"fmt"
)

// ErrReleased is returned by every operation on a buffer whose device handle was released.
var ErrReleased = errors.New("buffer released")

// OutOfBoundsError reports a write that does not fit inside the buffer. Nothing is written.
type OutOfBoundsError struct {
	Offset   int
	Count    int
	Capacity int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("write of %d elements at offset %d exceeds capacity %d", e.Count, e.Offset, e.Capacity)
}
