// package common contains plain data types and helpers shared across the module. They are not
// interface-wrapped structs, just plain structs that express commonly used data-types.
package common

// Releaser is any GPU-side resource that must be released when no longer needed.
type Releaser interface {
	Release()
}

// Filter selects texture minification and magnification filtering.
type Filter int

const (
	// FilterNearest samples the closest texel. This is the default.
	FilterNearest Filter = iota

	// FilterLinear interpolates between neighboring texels.
	FilterLinear
)

// String returns the lowercase name of the filter.
func (f Filter) String() string {
	if f == FilterLinear {
		return "linear"
	}
	return "nearest"
}

// TextureStagingData holds RGBA pixel data for a 2D texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the RGBA8 pixel data, 4 bytes per pixel, row-major, top row first.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Filter is used for both minification and magnification.
	Filter Filter
}
