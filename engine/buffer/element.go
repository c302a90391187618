package buffer

import "fmt"

// Element is the set of numeric types a buffer can hold.
type Element interface {
	int8 | uint8 | int16 | uint16 | float32
}

// ElementKind identifies the element type of a buffer at runtime.
type ElementKind int

const (
	KindInt8 ElementKind = iota
	KindUint8
	KindInt16
	KindUint16
	KindFloat32
)

// Size returns the width of one element in bytes.
func (k ElementKind) Size() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindFloat32:
		return 4
	}
	return 0
}

// String returns the short name of the kind, matching the names used by layouts.
func (k ElementKind) String() string {
	switch k {
	case KindInt8:
		return "byte"
	case KindUint8:
		return "ubyte"
	case KindInt16:
		return "short"
	case KindUint16:
		return "ushort"
	case KindFloat32:
		return "float"
	}
	return fmt.Sprintf("ElementKind(%d)", int(k))
}

// KindOf returns the ElementKind of T.
func KindOf[T Element]() ElementKind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return KindInt8
	case uint8:
		return KindUint8
	case int16:
		return KindInt16
	case uint16:
		return KindUint16
	default:
		return KindFloat32
	}
}
