package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/common"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Uploader creates device textures from staged RGBA pixels.
type Uploader interface {
	// UploadTexture creates a texture holding data.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the pixels, size and filter
	//
	// Returns:
	//   - common.Releaser: the device texture
	//   - error: an error if the device cannot create the texture
	UploadTexture(label string, data common.TextureStagingData) (common.Releaser, error)
}

// Options describes the contents of a texture. At most one of Pixels and Image is used,
// Pixels first. With neither, the texture is Width x Height (or 1x1) filled with Fill.
type Options struct {
	// Width and Height size the texture. For an Image they default to its bounds and
	// rescale it when they differ.
	Width, Height int

	// Filter defaults to common.FilterNearest.
	Filter common.Filter

	// Pixels is RGBA8 data of exactly Width*Height*4 bytes.
	Pixels []byte

	// Image is converted to RGBA8.
	Image image.Image

	// Fill colors a texture built without Pixels or Image. Defaults to transparent.
	Fill color.Color
}

// ParseFilter returns the filter with the given lowercase name.
//
// Parameters:
//   - name: "nearest" or "linear"
//
// Returns:
//   - common.Filter: the parsed filter
//   - error: an error if the name is not recognized
func ParseFilter(name string) (common.Filter, error) {
	switch strings.ToLower(name) {
	case "nearest":
		return common.FilterNearest, nil
	case "linear":
		return common.FilterLinear, nil
	}
	return common.FilterNearest, fmt.Errorf("unknown texture filter %q", name)
}

// Staging converts opts into RGBA8 staging data ready for upload.
//
// Parameters:
//   - opts: the texture contents
//
// Returns:
//   - common.TextureStagingData: the staged pixels
//   - error: an error if the size is negative or Pixels does not match the size
func Staging(opts Options) (common.TextureStagingData, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return common.TextureStagingData{}, fmt.Errorf("texture size %dx%d is negative", opts.Width, opts.Height)
	}

	switch {
	case opts.Pixels != nil:
		if want := opts.Width * opts.Height * 4; want == 0 || len(opts.Pixels) != want {
			return common.TextureStagingData{}, fmt.Errorf("texture %dx%d needs %d bytes of pixels, got %d", opts.Width, opts.Height, want, len(opts.Pixels))
		}
		pixels := make([]byte, len(opts.Pixels))
		copy(pixels, opts.Pixels)
		return staged(pixels, opts.Width, opts.Height, opts.Filter), nil

	case opts.Image != nil:
		rgba := toRGBA(opts.Image, opts.Width, opts.Height, opts.Filter)
		return staged(rgba.Pix, rgba.Rect.Dx(), rgba.Rect.Dy(), opts.Filter), nil
	}

	w, h := opts.Width, opts.Height
	if w == 0 || h == 0 {
		w, h = 1, 1
	}
	fill := opts.Fill
	if fill == nil {
		fill = color.Transparent
	}
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Rect, image.NewUniform(fill), image.Point{}, draw.Src)
	return staged(rgba.Pix, w, h, opts.Filter), nil
}

// Decode decodes a PNG, JPEG, GIF, BMP, TIFF or WebP image.
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - image.Image: the decoded image
//   - string: the format name
//   - error: the decode error, if any
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeBytes decodes an encoded image held in memory.
func DecodeBytes(data []byte) (image.Image, string, error) {
	return Decode(bytes.NewReader(data))
}

// toRGBA draws img into a tightly packed RGBA image of w x h, scaling with the scaler
// matching filter when the size differs from the image bounds.
func toRGBA(img image.Image, w, h int, filter common.Filter) *image.RGBA {
	b := img.Bounds()
	if w == 0 || h == 0 {
		w, h = b.Dx(), b.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
		return dst
	}

	var scaler draw.Scaler = draw.NearestNeighbor
	if filter == common.FilterLinear {
		scaler = draw.BiLinear
	}
	scaler.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst
}

func staged(pixels []byte, w, h int, filter common.Filter) common.TextureStagingData {
	return common.TextureStagingData{
		Pixels: pixels,
		Width:  uint32(w),
		Height: uint32(h),
		Filter: filter,
	}
}
