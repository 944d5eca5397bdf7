// Package cache stores prepared asset bytes between image loads and runs.
//
// The cache is an optimization only: every backend may drop entries at any
// time and callers fall back to loading from disk. Backends:
//   - [NullCache]: caching disabled (the default for generate runs)
//   - [MemoryCache]: in-process, TTL-based (go-cache)
//   - [FileCache]: JSON envelopes under the XDG cache directory
//   - [RedisCache]: shared cache addressed by a redis:// URL
//   - [Tiered]: a fast cache in front of a slower one
//
// Keys are produced by a [Keyer] so that a changed source file, or a changed
// output size, never reuses a stale entry.
package cache

import (
	"context"
	"os"
	"time"
)

// Cache TTLs.
const (
	TTLAsset   = 7 * 24 * time.Hour // prepared source image
	TTLPreview = time.Hour          // rendered preview PNG
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A ttl of zero means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TTLGetter is implemented by caches that can report how long an entry has
// left. A ttl of zero means the entry does not expire.
type TTLGetter interface {
	GetWithTTL(ctx context.Context, key string) (data []byte, ttl time.Duration, hit bool, err error)
}

// AssetKeyOpts identifies one prepared rendition of a source image.
type AssetKeyOpts struct {
	Size    int64     // source file size in bytes
	ModTime time.Time // source modification time
	Width   int       // target surface width
	Height  int       // target surface height
}

// SourceStamp identifies one version of a source image. The zero value
// stands for an absent layer.
type SourceStamp struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StampFile stamps path with its current size and modification time. A file
// that cannot be read is stamped by path alone.
func StampFile(path string) SourceStamp {
	s := SourceStamp{Path: path}
	if path == "" {
		return s
	}
	if info, err := os.Stat(path); err == nil {
		s.Size, s.ModTime = info.Size(), info.ModTime()
	}
	return s
}

func (s SourceStamp) parts() []any {
	return []any{s.Path, s.Size, s.ModTime.UnixNano()}
}

// PreviewKeyOpts identifies one rendered preview.
type PreviewKeyOpts struct {
	Background SourceStamp
	Width      int
	Height     int
}

// Keyer builds cache keys.
type Keyer interface {
	AssetKey(path string, opts AssetKeyOpts) string
	PreviewKey(layers []SourceStamp, opts PreviewKeyOpts) string
}

// DefaultKeyer produces "asset:<sha256>" and "preview:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// AssetKey hashes the path together with every option.
func (DefaultKeyer) AssetKey(path string, opts AssetKeyOpts) string {
	return hashKey("asset", path, opts.Size, opts.ModTime.UnixNano(), opts.Width, opts.Height)
}

// PreviewKey hashes one stamp per layer, in layer order, with the background
// and size.
func (DefaultKeyer) PreviewKey(layers []SourceStamp, opts PreviewKeyOpts) string {
	stamps := make([][]any, len(layers))
	for i, l := range layers {
		stamps[i] = l.parts()
	}
	return hashKey("preview", stamps, opts.Background.parts(), opts.Width, opts.Height)
}
