package cache

// ScopedKeyer wraps a Keyer with a prefix so several projects can share one
// Redis database without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "traitforge:punks:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// AssetKey generates a prefixed asset key.
func (k *ScopedKeyer) AssetKey(path string, opts AssetKeyOpts) string {
	return k.prefix + k.inner.AssetKey(path, opts)
}

// PreviewKey generates a prefixed preview key.
func (k *ScopedKeyer) PreviewKey(layers []SourceStamp, opts PreviewKeyOpts) string {
	return k.prefix + k.inner.PreviewKey(layers, opts)
}
