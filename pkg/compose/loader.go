package compose

import (
	"bytes"
	"context"
	"image"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/matzehuels/traitforge/pkg/cache"
	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/observability"
)

// Loader loads an image by path. Load may block on I/O.
type Loader interface {
	Load(ctx context.Context, path string) (image.Image, error)
}

// FileLoader decodes images from disk. PNG, JPEG, GIF, BMP, TIFF and WebP are
// supported; JPEG EXIF orientation is applied.
type FileLoader struct{}

// Load decodes the file at path. Failures are IO_ERROR.
func (FileLoader) Load(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "load image %s", path)
	}
	return img, nil
}

// CachedLoader stores images already fitted to the surface size, so a hit
// skips both decoding the original and scaling it.
type CachedLoader struct {
	Inner  Loader
	Cache  cache.Cache
	Keyer  cache.Keyer
	Width  int
	Height int
}

// NewCachedLoader wraps inner with c for a width x height surface.
func NewCachedLoader(inner Loader, c cache.Cache, width, height int) *CachedLoader {
	if inner == nil {
		inner = FileLoader{}
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &CachedLoader{Inner: inner, Cache: c, Keyer: cache.NewDefaultKeyer(), Width: width, Height: height}
}

// Load returns the cached rendition of path or loads, fits and caches it.
func (l *CachedLoader) Load(ctx context.Context, path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "load image %s", path)
	}
	key := l.Keyer.AssetKey(path, cache.AssetKeyOpts{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Width:   l.Width,
		Height:  l.Height,
	})

	if data, hit, err := l.Cache.Get(ctx, key); err == nil && hit {
		if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
			observability.Cache().OnCacheHit(ctx, "asset")
			return img, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "asset")

	src, err := l.Inner.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	fitted := Fit(src, l.Width, l.Height)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.PNG); err == nil {
		if l.Cache.Set(ctx, key, buf.Bytes(), cache.TTLAsset) == nil {
			observability.Cache().OnCacheSet(ctx, "asset", buf.Len())
		}
	}
	return fitted, nil
}

var (
	_ Loader = FileLoader{}
	_ Loader = (*CachedLoader)(nil)
)
