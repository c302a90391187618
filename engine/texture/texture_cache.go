package texture

import (
	"context"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/cache"
	"github.com/Carmen-Shannon/oxy-gl/engine/loader"
)

// Cache loads image files once per location and filter and keeps the uploaded textures.
type Cache struct {
	uploader Uploader
	loader   loader.Loader
	textures *cache.Cache[string, common.Releaser]
}

// NewCache creates an empty texture cache.
//
// Parameters:
//   - up: the device that creates textures
//   - l: the resource loader used for image files and URLs
//
// Returns:
//   - *Cache: the new cache
func NewCache(up Uploader, l loader.Loader) *Cache {
	return &Cache{
		uploader: up,
		loader:   l,
		textures: cache.New(cache.WithRelease[string](func(t common.Releaser) { t.Release() })),
	}
}

// Key returns the cache key of a location loaded with filter.
func Key(location string, filter common.Filter) string {
	return location + "#" + filter.String()
}

// Load returns the texture for location, reading, decoding and uploading it on first use.
//
// Parameters:
//   - ctx: cancels an in-flight request
//   - location: an image file path or URL
//   - filter: the sampling filter
//
// Returns:
//   - common.Releaser: the device texture
//   - error: a load, decode or upload error
func (c *Cache) Load(ctx context.Context, location string, filter common.Filter) (common.Releaser, error) {
	key := Key(location, filter)
	return c.textures.GetOrCreate(key, func() (common.Releaser, error) {
		data, err := c.loader.Load(ctx, location)
		if err != nil {
			return nil, err
		}
		img, format, err := DecodeBytes(data)
		if err != nil {
			return nil, err
		}
		staging, err := Staging(Options{Image: img, Filter: filter})
		if err != nil {
			return nil, err
		}
		common.Logger().Debug("texture decoded", "location", location, "format", format, "width", staging.Width, "height", staging.Height)
		return c.uploader.UploadTexture(key, staging)
	})
}

// LoadAsync uploads a 1x1 transparent placeholder and returns it at once, then loads location
// on a new goroutine. ready is called with the loaded texture, or the error, when it finishes.
//
// Parameters:
//   - ctx: cancels an in-flight request
//   - location: an image file path or URL
//   - filter: the sampling filter
//   - ready: called once with the loaded texture or the error
//
// Returns:
//   - common.Releaser: the placeholder texture, owned by the caller
//   - error: an error if the placeholder cannot be uploaded
func (c *Cache) LoadAsync(ctx context.Context, location string, filter common.Filter, ready func(common.Releaser, error)) (common.Releaser, error) {
	staging, err := Staging(Options{Filter: filter})
	if err != nil {
		return nil, err
	}
	placeholder, err := c.uploader.UploadTexture(Key(location, filter)+" placeholder", staging)
	if err != nil {
		return nil, err
	}
	go func() {
		ready(c.Load(ctx, location, filter))
	}()
	return placeholder, nil
}

// Create uploads a texture built from opts. It is not cached.
//
// Parameters:
//   - label: the debug label
//   - opts: the texture contents
//
// Returns:
//   - common.Releaser: the device texture, owned by the caller
//   - error: a staging or upload error
func (c *Cache) Create(label string, opts Options) (common.Releaser, error) {
	staging, err := Staging(opts)
	if err != nil {
		return nil, err
	}
	return c.uploader.UploadTexture(label, staging)
}

// Invalidate drops and releases the texture for location and filter.
func (c *Cache) Invalidate(location string, filter common.Filter) bool {
	return c.textures.Invalidate(Key(location, filter))
}

// Len returns the number of cached textures.
func (c *Cache) Len() int {
	return c.textures.Len()
}

// Release releases every cached texture.
func (c *Cache) Release() {
	c.textures.Clear()
}
